package services

import (
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var authorizeFlow = checkoutFlow{
	name:       "authorize",
	initOp:     gateway.OpAuthorize,
	completeOp: gateway.OpCompleteAuthorize,
	pending:    domain.StatusPendingAuthorization,
	end:        domain.StatusAuthorized,

	requestMsg:         domain.MsgAuthorizeRequest,
	redirectMsg:        domain.MsgAuthorizeRedirectResponse,
	awaitingMsg:        domain.MsgAwaitingAuthorizeResponse,
	responseMsg:        domain.MsgAuthorizedResponse,
	errorMsg:           domain.MsgAuthorizeError,
	completeRequestMsg: domain.MsgCompleteAuthorizeRequest,
	completeErrorMsg:   domain.MsgCompleteAuthorizeError,

	event:         EventAuthorized,
	awaitingEvent: EventAwaitingAuthorized,
}

// AuthorizeService reserves funds for a later capture.
type AuthorizeService struct {
	checkoutService
}

func NewAuthorizeService(payment *domain.Payment, deps Deps) *AuthorizeService {
	return &AuthorizeService{checkoutService{base: newBase(payment, deps), flow: authorizeFlow}}
}
