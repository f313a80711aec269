package services

import (
	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
)

// Intent names what a caller wants to do with a payment.
type Intent string

const (
	IntentAuthorize  Intent = "authorize"
	IntentPurchase   Intent = "purchase"
	IntentCapture    Intent = "capture"
	IntentRefund     Intent = "refund"
	IntentVoid       Intent = "void"
	IntentCreateCard Intent = "createcard"
	// IntentPayment picks authorize or purchase from the gateway config.
	IntentPayment Intent = "payment"
)

// Constructor builds a service for one payment.
type Constructor func(payment *domain.Payment, deps Deps) PaymentService

// ServiceProvider lets an extension supply its own service for an intent.
// It reports false to leave the intent to the factory.
type ServiceProvider interface {
	ServiceFor(intent Intent, payment *domain.Payment, deps Deps) (PaymentService, bool)
}

// Factory resolves intents to services. Providers are asked first and at
// most one may answer; otherwise the constructor map decides.
type Factory struct {
	deps         Deps
	constructors map[Intent]Constructor
	providers    []ServiceProvider
}

func NewFactory(deps Deps, providers ...ServiceProvider) *Factory {
	return &Factory{
		deps: deps,
		constructors: map[Intent]Constructor{
			IntentAuthorize:  func(p *domain.Payment, d Deps) PaymentService { return NewAuthorizeService(p, d) },
			IntentPurchase:   func(p *domain.Payment, d Deps) PaymentService { return NewPurchaseService(p, d) },
			IntentCapture:    func(p *domain.Payment, d Deps) PaymentService { return NewCaptureService(p, d) },
			IntentRefund:     func(p *domain.Payment, d Deps) PaymentService { return NewRefundService(p, d) },
			IntentVoid:       func(p *domain.Payment, d Deps) PaymentService { return NewVoidService(p, d) },
			IntentCreateCard: func(p *domain.Payment, d Deps) PaymentService { return NewCreateCardService(p, d) },
		},
		providers: providers,
	}
}

// Register replaces the constructor for intent.
func (f *Factory) Register(intent Intent, ctor Constructor) {
	f.constructors[intent] = ctor
}

// Deps returns the collaborators handed to every service.
func (f *Factory) Deps() Deps {
	return f.deps
}

func (f *Factory) Service(payment *domain.Payment, intent Intent) (PaymentService, error) {
	var found []PaymentService
	for _, p := range f.providers {
		if svc, ok := p.ServiceFor(intent, payment, f.deps); ok && svc != nil {
			found = append(found, svc)
		}
	}
	switch len(found) {
	case 0:
	case 1:
		return found[0], nil
	default:
		return nil, application.NewInvalidConfigurationError(
			"%d extensions provide a service for intent %q", len(found), intent)
	}

	if intent == IntentPayment {
		intent = IntentPurchase
		if f.deps.Info.ShouldUseAuthorize(payment.Gateway()) {
			intent = IntentAuthorize
		}
	}
	ctor, ok := f.constructors[intent]
	if !ok {
		return nil, application.NewInvalidConfigurationError("no service for intent %q", intent)
	}
	return ctor(payment, f.deps), nil
}

var statusIntents = map[domain.PaymentStatus]Intent{
	domain.StatusPendingAuthorization: IntentAuthorize,
	domain.StatusAuthorized:           IntentAuthorize,
	domain.StatusPendingPurchase:      IntentPurchase,
	domain.StatusCaptured:             IntentPurchase,
	domain.StatusPendingCapture:       IntentCapture,
	domain.StatusPendingRefund:        IntentRefund,
	domain.StatusRefunded:             IntentRefund,
	domain.StatusPendingVoid:          IntentVoid,
	domain.StatusVoid:                 IntentVoid,
	domain.StatusPendingCreateCard:    IntentCreateCard,
	domain.StatusCardCreated:          IntentCreateCard,
}

// IntentForStatus maps a payment's status to the service that can complete
// or cancel it. Both the pending and the completed status map to the same
// intent, since a notification may finish a payment before the payer
// returns.
func IntentForStatus(status domain.PaymentStatus) (Intent, bool) {
	intent, ok := statusIntents[status]
	return intent, ok
}
