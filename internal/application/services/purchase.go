package services

import (
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var purchaseFlow = checkoutFlow{
	name:       "purchase",
	initOp:     gateway.OpPurchase,
	completeOp: gateway.OpCompletePurchase,
	pending:    domain.StatusPendingPurchase,
	end:        domain.StatusCaptured,

	requestMsg:         domain.MsgPurchaseRequest,
	redirectMsg:        domain.MsgPurchaseRedirectResponse,
	awaitingMsg:        domain.MsgAwaitingPurchaseResponse,
	responseMsg:        domain.MsgPurchasedResponse,
	errorMsg:           domain.MsgPurchaseError,
	completeRequestMsg: domain.MsgCompletePurchaseRequest,
	completeErrorMsg:   domain.MsgCompletePurchaseError,

	event:         EventCaptured,
	awaitingEvent: EventAwaitingCaptured,
}

// PurchaseService authorizes and captures in one step.
type PurchaseService struct {
	checkoutService
}

func NewPurchaseService(payment *domain.Payment, deps Deps) *PurchaseService {
	return &PurchaseService{checkoutService{base: newBase(payment, deps), flow: purchaseFlow}}
}
