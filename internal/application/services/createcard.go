package services

import (
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

var createCardFlow = checkoutFlow{
	name:       "create card",
	initOp:     gateway.OpCreateCard,
	completeOp: gateway.OpCompleteCreateCard,
	pending:    domain.StatusPendingCreateCard,
	end:        domain.StatusCardCreated,

	requestMsg:         domain.MsgCreateCardRequest,
	redirectMsg:        domain.MsgCreateCardRedirectResponse,
	awaitingMsg:        domain.MsgAwaitingCreateCardResponse,
	responseMsg:        domain.MsgCreateCardResponse,
	errorMsg:           domain.MsgCreateCardError,
	completeRequestMsg: domain.MsgCompleteCreateCardRequest,
	completeErrorMsg:   domain.MsgCompleteCreateCardError,

	event:         EventCardCreated,
	awaitingEvent: EventAwaitingCardCreated,
}

// CreateCardService stores the payer's card with the gateway so later
// payments can use a token.
type CreateCardService struct {
	checkoutService
}

func NewCreateCardService(payment *domain.Payment, deps Deps) *CreateCardService {
	return &CreateCardService{checkoutService{base: newBase(payment, deps), flow: createCardFlow}}
}
