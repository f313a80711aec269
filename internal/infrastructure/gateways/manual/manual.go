// Package manual is the gateway for payments settled outside the system,
// e.g. bank transfer or cash on delivery. Every operation succeeds at once
// and nothing leaves the process.
package manual

import (
	"context"

	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

const Driver = "manual"

type Gateway struct {
	name string
}

func New(name string, _ map[string]string, _ gateway.Options) (gateway.Gateway, error) {
	return &Gateway{name: name}, nil
}

func (g *Gateway) Name() string { return g.name }

func (g *Gateway) Supports(op gateway.Operation) bool {
	switch op {
	case gateway.OpAuthorize, gateway.OpPurchase, gateway.OpCapture, gateway.OpRefund, gateway.OpVoid:
		return true
	}
	return false
}

func (g *Gateway) Authorize(data gateway.Data) gateway.Request { return accept(data, "authorized") }
func (g *Gateway) Purchase(data gateway.Data) gateway.Request { return accept(data, "paid") }
func (g *Gateway) Capture(data gateway.Data) gateway.Request { return accept(data, "captured") }
func (g *Gateway) Refund(data gateway.Data) gateway.Request { return accept(data, "refunded") }
func (g *Gateway) Void(data gateway.Data) gateway.Request { return accept(data, "voided") }

// accept echoes the caller's reference, if any, so a manually keyed
// reference (a transfer id, a receipt number) ends up on the payment.
func accept(data gateway.Data, text string) gateway.Request {
	return gateway.NewFuncRequest(data, func(_ context.Context, d gateway.Data) (gateway.Response, error) {
		return &gateway.BasicResponse{
			Successful: true,
			Reference:  d.String("transactionReference"),
			Text:       text,
		}, nil
	})
}
