package services

import (
	"context"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var voidFlow = followUpFlow{
	name:    "void",
	op:      gateway.OpVoid,
	start:   domain.StatusAuthorized,
	pending: domain.StatusPendingVoid,
	end:     domain.StatusVoid,

	requestMsg:  domain.MsgVoidRequest,
	awaitingMsg: domain.MsgAwaitingVoidResponse,
	responseMsg: domain.MsgVoidedResponse,
	partialMsg:  domain.MsgVoidedResponse,
	errorMsg:    domain.MsgVoidError,

	event:         EventVoid,
	awaitingEvent: EventAwaitingVoid,
}

// VoidService releases an authorization at the gateway.
type VoidService struct {
	notificationCompleteService
}

func NewVoidService(payment *domain.Payment, deps Deps) *VoidService {
	s := &VoidService{notificationCompleteService{base: newBase(payment, deps), flow: voidFlow}}
	s.op = voidOp{info: deps.Info}
	return s
}

type voidOp struct {
	info *gatewayinfo.Registry
}

func (o voidOp) permitted(_ context.Context, p *domain.Payment) error {
	if !o.info.AllowVoid(p.Gateway()) {
		return application.NewInvalidConfigurationError("gateway %q does not allow void", p.Gateway())
	}
	return nil
}

// amount is always the full authorization.
func (voidOp) amount(_ context.Context, p *domain.Payment, _ gateway.Data) (string, bool, error) {
	return p.Amount(), false, nil
}

func (voidOp) settle(_, _ *domain.Payment) (domain.PaymentStatus, error) {
	return domain.StatusVoid, nil
}
