package services

import (
	"context"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var refundFlow = followUpFlow{
	name:    "refund",
	op:      gateway.OpRefund,
	start:   domain.StatusCaptured,
	pending: domain.StatusPendingRefund,
	end:     domain.StatusRefunded,

	requestMsg:  domain.MsgRefundRequest,
	awaitingMsg: domain.MsgAwaitingRefundResponse,
	responseMsg: domain.MsgRefundedResponse,
	partialMsg:  domain.MsgPartiallyRefundedResponse,
	errorMsg:    domain.MsgRefundError,

	event:         EventRefunded,
	awaitingEvent: EventAwaitingRefunded,
}

// RefundService returns captured funds to the payer.
type RefundService struct {
	notificationCompleteService
}

func NewRefundService(payment *domain.Payment, deps Deps) *RefundService {
	s := &RefundService{notificationCompleteService{base: newBase(payment, deps), flow: refundFlow}}
	s.op = refundOp{info: deps.Info, store: deps.Store}
	return s
}

type refundOp struct {
	info  *gatewayinfo.Registry
	store application.Store
}

func (o refundOp) permitted(_ context.Context, p *domain.Payment) error {
	if !o.info.AllowRefund(p.Gateway()) {
		return application.NewInvalidConfigurationError("gateway %q does not allow refund", p.Gateway())
	}
	return nil
}

func (o refundOp) amount(ctx context.Context, p *domain.Payment, data gateway.Data) (string, bool, error) {
	amount, partial, err := requestedAmount(p, data.String("amount"))
	if err != nil || !partial {
		return amount, partial, err
	}

	cmp, err := compare(amount, p.Amount())
	if err != nil {
		return "", false, err
	}
	if cmp > 0 {
		return "", false, application.NewInvalidParameterError(
			"amount %s exceeds the captured amount of %s", amount, p.Amount())
	}
	if !o.info.AllowPartialRefund(p.Gateway()) {
		return "", false, application.NewInvalidParameterError(
			"gateway %q only refunds the full amount of %s", p.Gateway(), p.Amount())
	}
	if o.info.RefundMode(p.Gateway()) == gatewayinfo.ModePartial {
		refunded, err := o.partiallyRefunded(ctx, p)
		if err != nil {
			return "", false, err
		}
		if refunded {
			return "", false, application.NewInvalidConfigurationError(
				"gateway %q does not allow another partial refund", p.Gateway())
		}
	}
	return amount, true, nil
}

// partiallyRefunded looks for an earlier partial refund in the payment's
// trail. Remainders released by a partial capture are refunded children too
// but never leave this message on the parent.
func (o refundOp) partiallyRefunded(ctx context.Context, p *domain.Payment) (bool, error) {
	msgs, err := o.store.Messages().FindByPaymentID(ctx, p.ID())
	if err != nil {
		return false, storeError(err)
	}
	for _, m := range msgs {
		if m.Type == domain.MsgPartiallyRefundedResponse {
			return true, nil
		}
	}
	return false, nil
}

// settle moves the refunded part into the partial and leaves the rest
// captured on the parent.
func (o refundOp) settle(parent, partial *domain.Payment) (domain.PaymentStatus, error) {
	if partial == nil {
		return domain.StatusRefunded, nil
	}

	rest := partial.Amount()
	refunded, err := subtract(parent.Amount(), rest)
	if err != nil {
		return "", err
	}
	if err := reconcile(partial, refunded, domain.StatusRefunded); err != nil {
		return "", err
	}
	if err := parent.ApplyReconciledAmount(rest); err != nil {
		return "", err
	}
	return domain.StatusCaptured, nil
}
