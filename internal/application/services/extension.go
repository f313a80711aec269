package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

// Event names a point after which extensions are told about a payment.
type Event string

const (
	EventAuthorized          Event = "Authorized"
	EventAwaitingAuthorized  Event = "AwaitingAuthorized"
	EventCaptured            Event = "Captured"
	EventAwaitingCaptured    Event = "AwaitingCaptured"
	EventRefunded            Event = "Refunded"
	EventAwaitingRefunded    Event = "AwaitingRefunded"
	EventVoid                Event = "Void"
	EventAwaitingVoid        Event = "AwaitingVoid"
	EventCardCreated         Event = "CardCreated"
	EventAwaitingCardCreated Event = "AwaitingCardCreated"
	EventCancelled           Event = "Cancelled"
)

// Extension receives every hook the services fire. Embed NopExtension and
// override what you need.
type Extension interface {
	// BeforeRequest may change data before the gateway request is built.
	BeforeRequest(ctx context.Context, op gateway.Operation, payment *domain.Payment, data gateway.Data) error
	AfterRequest(ctx context.Context, op gateway.Operation, payment *domain.Payment, req gateway.Request) error
	AfterSend(ctx context.Context, op gateway.Operation, payment *domain.Payment, req gateway.Request, resp gateway.Message) error
	UpdateServiceResponse(ctx context.Context, op gateway.Operation, resp *ServiceResponse) error
	UpdatePartialPayment(ctx context.Context, partial, parent *domain.Payment) error
	OnEvent(ctx context.Context, event Event, resp *ServiceResponse) error
}

type NopExtension struct{}

func (NopExtension) BeforeRequest(context.Context, gateway.Operation, *domain.Payment, gateway.Data) error {
	return nil
}

func (NopExtension) AfterRequest(context.Context, gateway.Operation, *domain.Payment, gateway.Request) error {
	return nil
}

func (NopExtension) AfterSend(context.Context, gateway.Operation, *domain.Payment, gateway.Request, gateway.Message) error {
	return nil
}

func (NopExtension) UpdateServiceResponse(context.Context, gateway.Operation, *ServiceResponse) error {
	return nil
}

func (NopExtension) UpdatePartialPayment(context.Context, *domain.Payment, *domain.Payment) error {
	return nil
}

func (NopExtension) OnEvent(context.Context, Event, *ServiceResponse) error {
	return nil
}

// Extensions fans a hook out to every registered extension. A failing or
// panicking extension is logged and skipped. In strict mode the failures are
// also returned so they surface during development.
type Extensions struct {
	list   []Extension
	strict bool
	logger *slog.Logger
}

func NewExtensions(logger *slog.Logger, strict bool, exts ...Extension) *Extensions {
	return &Extensions{list: exts, strict: strict, logger: logger}
}

func (e *Extensions) run(ctx context.Context, hook string, fn func(Extension) error) error {
	if e == nil {
		return nil
	}

	var errs []error
	for _, ext := range e.list {
		if err := e.call(ext, fn); err != nil {
			e.logger.ErrorContext(ctx, "extension hook failed",
				"hook", hook,
				"extension", fmt.Sprintf("%T", ext),
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	if e.strict {
		return errors.Join(errs...)
	}
	return nil
}

func (e *Extensions) call(ext Extension, fn func(Extension) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ext)
}

func (e *Extensions) beforeRequest(ctx context.Context, op gateway.Operation, p *domain.Payment, data gateway.Data) error {
	return e.run(ctx, "before_request", func(x Extension) error { return x.BeforeRequest(ctx, op, p, data) })
}

func (e *Extensions) afterRequest(ctx context.Context, op gateway.Operation, p *domain.Payment, req gateway.Request) error {
	return e.run(ctx, "after_request", func(x Extension) error { return x.AfterRequest(ctx, op, p, req) })
}

func (e *Extensions) afterSend(ctx context.Context, op gateway.Operation, p *domain.Payment, req gateway.Request, resp gateway.Message) error {
	return e.run(ctx, "after_send", func(x Extension) error { return x.AfterSend(ctx, op, p, req, resp) })
}

func (e *Extensions) updateServiceResponse(ctx context.Context, op gateway.Operation, resp *ServiceResponse) error {
	return e.run(ctx, "update_service_response", func(x Extension) error { return x.UpdateServiceResponse(ctx, op, resp) })
}

func (e *Extensions) updatePartialPayment(ctx context.Context, partial, parent *domain.Payment) error {
	return e.run(ctx, "update_partial_payment", func(x Extension) error { return x.UpdatePartialPayment(ctx, partial, parent) })
}

func (e *Extensions) onEvent(ctx context.Context, event Event, resp *ServiceResponse) error {
	return e.run(ctx, "on_event", func(x Extension) error { return x.OnEvent(ctx, event, resp) })
}
