package services

import (
	"context"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var captureFlow = followUpFlow{
	name:    "capture",
	op:      gateway.OpCapture,
	start:   domain.StatusAuthorized,
	pending: domain.StatusPendingCapture,
	end:     domain.StatusCaptured,

	requestMsg:  domain.MsgCaptureRequest,
	awaitingMsg: domain.MsgAwaitingCaptureResponse,
	responseMsg: domain.MsgCapturedResponse,
	partialMsg:  domain.MsgPartiallyCapturedResponse,
	errorMsg:    domain.MsgCaptureError,

	event:         EventCaptured,
	awaitingEvent: EventAwaitingCaptured,
}

// CaptureService settles an authorized payment. Depending on the gateway it
// may capture less than authorized, more than authorized within the
// configured excess, or several times.
type CaptureService struct {
	notificationCompleteService
}

func NewCaptureService(payment *domain.Payment, deps Deps) *CaptureService {
	s := &CaptureService{notificationCompleteService{base: newBase(payment, deps), flow: captureFlow}}
	s.op = captureOp{info: deps.Info}
	return s
}

type captureOp struct {
	info *gatewayinfo.Registry
}

func (o captureOp) permitted(_ context.Context, p *domain.Payment) error {
	if !o.info.AllowCapture(p.Gateway()) {
		return application.NewInvalidConfigurationError("gateway %q does not allow capture", p.Gateway())
	}
	return nil
}

func (o captureOp) amount(_ context.Context, p *domain.Payment, data gateway.Data) (string, bool, error) {
	amount, partial, err := requestedAmount(p, data.String("amount"))
	if err != nil || !partial {
		return amount, partial, err
	}

	limit, err := maxCapture(o.info, p)
	if err != nil {
		return "", false, err
	}
	cmp, err := compare(amount, limit)
	if err != nil {
		return "", false, err
	}
	if cmp > 0 {
		return "", false, application.NewInvalidParameterError(
			"amount %s exceeds the maximum capture of %s", amount, limit)
	}
	if !o.info.AllowPartialCapture(p.Gateway()) {
		return "", false, application.NewInvalidParameterError(
			"gateway %q only captures the full amount of %s", p.Gateway(), p.Amount())
	}
	return amount, true, nil
}

// settle splits the authorization. The partial carries the remainder, which
// is negative for an excess capture. In multiple mode the partial becomes
// the captured part and the parent keeps the remainder authorized;
// otherwise the parent is captured and a positive remainder is released.
func (o captureOp) settle(parent, partial *domain.Payment) (domain.PaymentStatus, error) {
	if partial == nil {
		return domain.StatusCaptured, nil
	}

	rest := partial.Amount()
	captured, err := subtract(parent.Amount(), rest)
	if err != nil {
		return "", err
	}
	sign, err := compare(rest, "0")
	if err != nil {
		return "", err
	}

	if sign > 0 && o.info.CaptureMode(parent.Gateway()) == gatewayinfo.ModeMultiple {
		if err := reconcile(partial, captured, domain.StatusCaptured); err != nil {
			return "", err
		}
		if err := parent.ApplyReconciledAmount(rest); err != nil {
			return "", err
		}
		return domain.StatusAuthorized, nil
	}

	if err := parent.ApplyReconciledAmount(captured); err != nil {
		return "", err
	}
	childStatus := domain.StatusCaptured
	if sign > 0 {
		childStatus = domain.StatusRefunded
	}
	if err := partial.TransitionTo(childStatus); err != nil {
		return "", err
	}
	return domain.StatusCaptured, nil
}

func reconcile(p *domain.Payment, amount string, status domain.PaymentStatus) error {
	if err := p.ApplyReconciledAmount(amount); err != nil {
		return err
	}
	return p.TransitionTo(status)
}
