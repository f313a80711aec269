// Package services drives payments through their lifecycle. Each service
// wraps one payment and one kind of gateway operation, records every gateway
// interaction as a Message and reports the outcome as a ServiceResponse.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

// PaymentService is implemented by every service the Factory hands out.
type PaymentService interface {
	Payment() *domain.Payment
	Initiate(ctx context.Context, data gateway.Data) (*ServiceResponse, error)
	Complete(ctx context.Context, data gateway.Data, isNotification bool) (*ServiceResponse, error)
	Cancel(ctx context.Context) (*ServiceResponse, error)
}

// GatewayTimer observes the latency of every gateway round trip.
type GatewayTimer interface {
	ObserveGatewayRequest(gatewayName string, op gateway.Operation, d time.Duration, err error)
}

// Deps are the collaborators shared by all services.
type Deps struct {
	Store      application.Store
	Gateways   gateway.Factory
	Info       *gatewayinfo.Registry
	Extensions *Extensions
	Logger     *slog.Logger
	Timer      GatewayTimer
	// EndpointBaseURL prefixes the callback URLs handed to gateways.
	EndpointBaseURL string
	// HTTPClient, when set, replaces the gateways' outbound client.
	HTTPClient *http.Client
}

// DefaultTokenKey is the data key for a stored card token unless the gateway
// configures another one.
const DefaultTokenKey = "token"

var cardKeys = []string{"card", "number", "cvv", "expiryMonth", "expiryYear"}

type base struct {
	deps    Deps
	payment *domain.Payment
	logger  *slog.Logger
}

func newBase(payment *domain.Payment, deps Deps) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		deps:    deps,
		payment: payment,
		logger:  logger.With("payment_id", payment.ID(), "gateway", payment.Gateway()),
	}
}

func (b *base) Payment() *domain.Payment {
	return b.payment
}

// Cancel voids a payment that has not finished its flow. Cancelling twice is
// harmless.
func (b *base) Cancel(ctx context.Context) (*ServiceResponse, error) {
	if b.payment.IsTerminal() {
		return NewServiceResponse(b.payment, FlagCancelled), nil
	}
	if err := b.ensurePersisted(ctx); err != nil {
		return nil, err
	}

	err := b.mutate(ctx, func(tx application.Store, p *domain.Payment) error {
		// A pending partial would otherwise keep its share of the amount.
		switch status := p.Status(); status {
		case domain.StatusPendingCapture, domain.StatusPendingRefund, domain.StatusPendingVoid:
			if err := voidPartials(ctx, tx, p, status); err != nil {
				return err
			}
		}
		if err := p.TransitionTo(domain.StatusVoid); err != nil {
			return err
		}
		b.recordIn(ctx, tx.Messages(), p, domain.MsgCancelledResponse, "payment cancelled")
		return nil
	})
	if err != nil {
		done, cerr := b.resolveConflict(ctx, err, func(p *domain.Payment) bool { return p.IsTerminal() })
		if !done {
			return nil, cerr
		}
		return NewServiceResponse(b.payment, FlagCancelled), nil
	}

	b.logger.InfoContext(ctx, "payment cancelled")
	resp := NewServiceResponse(b.payment, FlagCancelled)
	if err := b.ext().onEvent(ctx, EventCancelled, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *base) ext() *Extensions {
	return b.deps.Extensions
}

// gateway builds the payment's gateway with the configured HTTP client and,
// for callbacks, the inbound request.
func (b *base) gateway(ctx context.Context) (gateway.Gateway, error) {
	var opts []gateway.Option
	if b.deps.HTTPClient != nil {
		opts = append(opts, gateway.WithHTTPClient(b.deps.HTTPClient))
	}
	if r := InboundRequest(ctx); r != nil {
		opts = append(opts, gateway.WithHTTPRequest(r))
	}

	gw, err := b.deps.Gateways.Create(b.payment.Gateway(), opts...)
	if err != nil {
		return nil, application.NewInvalidConfigurationError("gateway %q is not available: %v", b.payment.Gateway(), err)
	}
	return gw, nil
}

func (b *base) require(gw gateway.Gateway, op gateway.Operation) error {
	if !gateway.Supports(gw, op) {
		return application.NewInvalidConfigurationError("gateway %q does not support %s", gw.Name(), op)
	}
	return nil
}

func (b *base) ensurePersisted(ctx context.Context) error {
	if b.payment.IsPersisted() {
		return nil
	}
	p := b.payment.Clone()
	p.EnsureIdentifier()
	if err := b.deps.Store.Payments().Create(ctx, p); err != nil {
		return storeError(err)
	}
	b.payment = p
	return nil
}

// mutate applies fn to a copy of the payment inside a transaction and writes
// the copy back. The service only sees the new state once the write
// committed; a concurrent writer makes it fail with domain.ErrStaleVersion.
func (b *base) mutate(ctx context.Context, fn func(tx application.Store, p *domain.Payment) error) error {
	p := b.payment.Clone()
	err := b.deps.Store.WithTx(ctx, func(tx application.Store) error {
		current, err := tx.Payments().FindByIDForUpdate(ctx, p.ID())
		if err != nil {
			return err
		}
		if current.Version() != p.Version() {
			return domain.NewStaleVersionError(p.ID().String(), p.Version())
		}
		if err := fn(tx, p); err != nil {
			return err
		}
		return tx.Payments().Update(ctx, p)
	})
	if err != nil {
		return err
	}
	b.payment = p
	return nil
}

// resolveConflict handles a failed mutate. After losing to another writer
// the payment is reloaded; done decides whether the winner already did the
// caller's work.
func (b *base) resolveConflict(ctx context.Context, err error, done func(*domain.Payment) bool) (bool, error) {
	if !errors.Is(err, domain.ErrStaleVersion) {
		return false, storeError(err)
	}

	fresh, ferr := b.deps.Store.Payments().FindByID(ctx, b.payment.ID())
	if ferr != nil {
		return false, storeError(ferr)
	}
	b.payment = fresh

	if done(fresh) {
		b.logger.InfoContext(ctx, "concurrent update already completed payment", "status", fresh.Status())
		return true, nil
	}
	b.logger.WarnContext(ctx, "lost concurrent update", "status", fresh.Status())
	return false, application.NewConcurrentUpdateError(err)
}

func storeError(err error) error {
	if _, ok := application.IsServiceError(err); ok {
		return err
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return application.NewInternalError(err)
}

func (b *base) endpointURL(action string) string {
	return fmt.Sprintf("%s/paymentendpoint/%s/%s",
		strings.TrimRight(b.deps.EndpointBaseURL, "/"), b.payment.Identifier(), action)
}

// gatewayData merges caller data with the fields every gateway call needs.
func (b *base) gatewayData(ctx context.Context, data gateway.Data) gateway.Data {
	out := data.Clone()
	out["amount"] = b.payment.Amount()
	out["currency"] = b.payment.Currency()
	if !out.Has("transactionId") {
		out["transactionId"] = b.payment.Identifier()
	}
	if ip := RequestMetaFrom(ctx).ClientIP; ip != "" {
		out["clientIp"] = ip
	}
	out["returnUrl"] = b.endpointURL("complete")
	out["cancelUrl"] = b.endpointURL("cancel")
	out["notifyUrl"] = b.endpointURL("notify")
	return out
}

// attachCard adds either the stored token or the card built from the
// caller's fields. The two never travel together.
func (b *base) attachCard(out, data gateway.Data) {
	key := b.deps.Info.TokenKey(b.payment.Gateway(), DefaultTokenKey)
	if data.Has(key) {
		out[key] = data[key]
		for _, k := range cardKeys {
			delete(out, k)
		}
		return
	}
	out["card"] = gateway.CardFromData(data)
}

// send runs one gateway request between the extension hooks. A gateway
// failure is recorded under errorType and reported as ok == false; only
// hook failures in strict mode come back as an error.
func (b *base) send(
	ctx context.Context,
	gw gateway.Gateway,
	op gateway.Operation,
	data gateway.Data,
	requestType, errorType domain.MessageType,
) (resp gateway.Response, ok bool, err error) {
	if err := b.ext().beforeRequest(ctx, op, b.payment, data); err != nil {
		return nil, false, err
	}

	req, err := gateway.NewRequest(gw, op, data)
	if err != nil {
		return nil, false, application.NewInvalidConfigurationError("%v", err)
	}
	if err := b.ext().afterRequest(ctx, op, b.payment, req); err != nil {
		return nil, false, err
	}
	b.record(ctx, requestType, req)

	start := time.Now()
	resp, sendErr := req.Send(ctx)
	if sendErr == nil && resp == nil {
		sendErr = errors.New("gateway returned no response")
	}
	if b.deps.Timer != nil {
		b.deps.Timer.ObserveGatewayRequest(b.payment.Gateway(), op, time.Since(start), sendErr)
	}
	if sendErr != nil {
		b.logger.WarnContext(ctx, "gateway request failed",
			"operation", op,
			"error", sendErr,
			"duration", time.Since(start),
		)
		b.record(ctx, errorType, sendErr)
		return nil, false, nil
	}

	if err := b.ext().afterSend(ctx, op, b.payment, req, resp); err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

// flagsFor classifies a synchronous gateway answer. Notifications are only
// ever successful or failed. Otherwise an async gateway leaves the outcome
// pending, and a plain failure is an error.
func (b *base) flagsFor(resp gateway.Response, isNotification bool) Flag {
	if isNotification {
		if !resp.IsSuccessful() {
			return FlagNotification | FlagError
		}
		return FlagNotification
	}

	async := b.deps.Info.ShouldUseAsyncNotifications(b.payment.Gateway())
	var flags Flag
	if async {
		flags |= FlagPending
	}
	if !resp.IsSuccessful() && !resp.IsRedirect() && !async {
		flags |= FlagError
	}
	return flags
}

// respond builds the final response and lets extensions adjust it.
func (b *base) respond(ctx context.Context, op gateway.Operation, flags Flag, msg gateway.Message) (*ServiceResponse, error) {
	resp := NewServiceResponse(b.payment, flags).SetGatewayResponse(msg)
	if err := b.ext().updateServiceResponse(ctx, op, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *base) record(ctx context.Context, t domain.MessageType, src any) {
	b.recordIn(ctx, b.deps.Store.Messages(), b.payment, t, src)
}

// recordIn writes an audit message. A failed write is logged: the audit
// trail never decides the outcome of a payment operation.
func (b *base) recordIn(ctx context.Context, repo application.MessageRepository, p *domain.Payment, t domain.MessageType, src any) {
	msg := newMessage(ctx, p, t, src)
	if err := repo.Append(ctx, msg); err != nil {
		b.logger.ErrorContext(ctx, "failed to record payment message", "type", t, "error", err)
	}
}

func newMessage(ctx context.Context, p *domain.Payment, t domain.MessageType, src any) *domain.Message {
	msg := domain.NewMessage(p.ID(), t)
	meta := RequestMetaFrom(ctx)
	msg.ClientIP = meta.ClientIP
	msg.UserID = meta.UserID

	switch v := src.(type) {
	case gateway.Message:
		msg.Message = v.Message()
		msg.Code = v.Code()
		msg.Reference = v.TransactionReference()
		msg.Data = rawJSON(v.Data())
	case gateway.Request:
		msg.Message = "request sent"
		msg.Reference = v.Data().String("transactionReference")
		msg.Data = rawJSON(redact(v.Data()))
	case error:
		msg.Message = v.Error()
	case string:
		msg.Message = v
	}
	return msg
}

func redact(data gateway.Data) gateway.Data {
	out := data.Clone()
	for _, k := range cardKeys {
		delete(out, k)
	}
	return out
}

func rawJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
