// Package gatewaytest provides a programmable in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var ErrNetwork = errors.New("gatewaytest: connection reset")

// Gateway supports exactly the operations it was built with. Sends are
// answered by SendFn (or a successful response when nil) and counted.
type Gateway struct {
	mu       sync.Mutex
	name     string
	ops      map[gateway.Operation]bool
	sends    map[gateway.Operation]int
	lastData map[gateway.Operation]gateway.Data

	SendFn         func(op gateway.Operation, data gateway.Data) (gateway.Response, error)
	NotificationFn func(data gateway.Data) (gateway.Notification, error)
}

func New(name string, ops ...gateway.Operation) *Gateway {
	g := &Gateway{
		name:     name,
		ops:      make(map[gateway.Operation]bool),
		sends:    make(map[gateway.Operation]int),
		lastData: make(map[gateway.Operation]gateway.Data),
	}
	for _, op := range ops {
		g.ops[op] = true
	}
	return g
}

// AllOperations is every operation a gateway can declare.
var AllOperations = []gateway.Operation{
	gateway.OpPurchase, gateway.OpCompletePurchase,
	gateway.OpAuthorize, gateway.OpCompleteAuthorize,
	gateway.OpCapture, gateway.OpRefund, gateway.OpVoid,
	gateway.OpCreateCard, gateway.OpCompleteCreateCard,
	gateway.OpAcceptNotification,
}

func (g *Gateway) Name() string { return g.name }

func (g *Gateway) Supports(op gateway.Operation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ops[op]
}

func (g *Gateway) Purchase(d gateway.Data) gateway.Request { return g.request(gateway.OpPurchase, d) }
func (g *Gateway) CompletePurchase(d gateway.Data) gateway.Request {
	return g.request(gateway.OpCompletePurchase, d)
}
func (g *Gateway) Authorize(d gateway.Data) gateway.Request { return g.request(gateway.OpAuthorize, d) }
func (g *Gateway) CompleteAuthorize(d gateway.Data) gateway.Request {
	return g.request(gateway.OpCompleteAuthorize, d)
}
func (g *Gateway) Capture(d gateway.Data) gateway.Request { return g.request(gateway.OpCapture, d) }
func (g *Gateway) Refund(d gateway.Data) gateway.Request { return g.request(gateway.OpRefund, d) }
func (g *Gateway) Void(d gateway.Data) gateway.Request { return g.request(gateway.OpVoid, d) }
func (g *Gateway) CreateCard(d gateway.Data) gateway.Request {
	return g.request(gateway.OpCreateCard, d)
}
func (g *Gateway) CompleteCreateCard(d gateway.Data) gateway.Request {
	return g.request(gateway.OpCompleteCreateCard, d)
}

func (g *Gateway) AcceptNotification(d gateway.Data) (gateway.Notification, error) {
	g.record(gateway.OpAcceptNotification, d)
	if g.NotificationFn != nil {
		return g.NotificationFn(d)
	}
	return &gateway.BasicNotification{Status: gateway.NotificationCompleted}, nil
}

func (g *Gateway) request(op gateway.Operation, d gateway.Data) gateway.Request {
	return gateway.NewFuncRequest(d, func(_ context.Context, data gateway.Data) (gateway.Response, error) {
		g.record(op, data)
		if g.SendFn != nil {
			return g.SendFn(op, data)
		}
		return Success(fmt.Sprintf("ref-%s", op)), nil
	})
}

func (g *Gateway) record(op gateway.Operation, d gateway.Data) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends[op]++
	g.lastData[op] = d
}

// Calls returns how many times op reached the network.
func (g *Gateway) Calls(op gateway.Operation) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sends[op]
}

func (g *Gateway) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.sends {
		total += n
	}
	return total
}

func (g *Gateway) LastData(op gateway.Operation) gateway.Data {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastData[op]
}

func Success(reference string) *gateway.BasicResponse {
	return &gateway.BasicResponse{Successful: true, Reference: reference, Text: "Success"}
}

func Failure(message string) *gateway.BasicResponse {
	return &gateway.BasicResponse{Text: message, ResultCode: "declined"}
}

func Redirect(url, reference string) *gateway.BasicResponse {
	return &gateway.BasicResponse{Redirect: true, URL: url, Reference: reference}
}

// PostRedirect returns a redirect that must be delivered as a form POST.
func PostRedirect(url string, fields map[string]string) *gateway.BasicResponse {
	return &gateway.BasicResponse{Redirect: true, URL: url, Method: http.MethodPost, FormData: fields}
}

func Notify(status gateway.NotificationStatus, reference string) *gateway.BasicNotification {
	return &gateway.BasicNotification{Status: status, Reference: reference, Text: string(status)}
}

// Factory hands out registered fakes and remembers the options it saw.
type Factory struct {
	mu       sync.Mutex
	gateways map[string]*Gateway
	options  []gateway.Options
}

func NewFactory(gws ...*Gateway) *Factory {
	f := &Factory{gateways: make(map[string]*Gateway)}
	for _, g := range gws {
		f.gateways[g.Name()] = g
	}
	return f
}

func (f *Factory) Create(name string, opts ...gateway.Option) (gateway.Gateway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var o gateway.Options
	for _, opt := range opts {
		opt(&o)
	}
	f.options = append(f.options, o)

	g, ok := f.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", gateway.ErrUnknownGateway, name)
	}
	return g, nil
}

// LastOptions returns the options passed to the most recent Create call.
func (f *Factory) LastOptions() gateway.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.options) == 0 {
		return gateway.Options{}
	}
	return f.options[len(f.options)-1]
}
