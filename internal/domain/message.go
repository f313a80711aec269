package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType tags an audit trail entry.
type MessageType string

const (
	MsgPurchaseRequest          MessageType = "PurchaseRequest"
	MsgPurchaseRedirectResponse MessageType = "PurchaseRedirectResponse"
	MsgAwaitingPurchaseResponse MessageType = "AwaitingPurchaseResponse"
	MsgPurchasedResponse        MessageType = "PurchasedResponse"
	MsgPurchaseError            MessageType = "PurchaseError"
	MsgCompletePurchaseRequest  MessageType = "CompletePurchaseRequest"
	MsgCompletePurchaseError    MessageType = "CompletePurchaseError"

	MsgAuthorizeRequest          MessageType = "AuthorizeRequest"
	MsgAuthorizeRedirectResponse MessageType = "AuthorizeRedirectResponse"
	MsgAwaitingAuthorizeResponse MessageType = "AwaitingAuthorizeResponse"
	MsgAuthorizedResponse        MessageType = "AuthorizedResponse"
	MsgAuthorizeError            MessageType = "AuthorizeError"
	MsgCompleteAuthorizeRequest  MessageType = "CompleteAuthorizeRequest"
	MsgCompleteAuthorizeError    MessageType = "CompleteAuthorizeError"

	MsgCreateCardRequest          MessageType = "CreateCardRequest"
	MsgCreateCardRedirectResponse MessageType = "CreateCardRedirectResponse"
	MsgAwaitingCreateCardResponse MessageType = "AwaitingCreateCardResponse"
	MsgCreateCardResponse         MessageType = "CreateCardResponse"
	MsgCreateCardError            MessageType = "CreateCardError"
	MsgCompleteCreateCardRequest  MessageType = "CompleteCreateCardRequest"
	MsgCompleteCreateCardError    MessageType = "CompleteCreateCardError"

	MsgCaptureRequest               MessageType = "CaptureRequest"
	MsgAwaitingCaptureResponse      MessageType = "AwaitingCaptureResponse"
	MsgCapturedResponse             MessageType = "CapturedResponse"
	MsgPartiallyCapturedResponse    MessageType = "PartiallyCapturedResponse"
	MsgCaptureError                 MessageType = "CaptureError"
	MsgRefundRequest                MessageType = "RefundRequest"
	MsgAwaitingRefundResponse       MessageType = "AwaitingRefundResponse"
	MsgRefundedResponse             MessageType = "RefundedResponse"
	MsgPartiallyRefundedResponse    MessageType = "PartiallyRefundedResponse"
	MsgRefundError                  MessageType = "RefundError"
	MsgVoidRequest                  MessageType = "VoidRequest"
	MsgAwaitingVoidResponse         MessageType = "AwaitingVoidResponse"
	MsgVoidedResponse               MessageType = "VoidedResponse"
	MsgVoidError                    MessageType = "VoidError"
	MsgNotificationSuccessful       MessageType = "NotificationSuccessful"
	MsgNotificationPending          MessageType = "NotificationPending"
	MsgNotificationError            MessageType = "NotificationError"
	MsgCancelledResponse            MessageType = "CancelledResponse"
	MsgTransactionReferenceMismatch MessageType = "TransactionReferenceMismatch"
)

// Message is one immutable audit trail entry. It records what was sent to or
// received from the gateway regardless of where the payment status ended up.
type Message struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	Type      MessageType
	Message   string
	Code      string
	Reference string
	Data      json.RawMessage
	UserID    string
	ClientIP  string
	CreatedAt time.Time
}

func NewMessage(paymentID uuid.UUID, t MessageType) *Message {
	return &Message{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Type:      t,
		CreatedAt: time.Now().UTC(),
	}
}

// IsError reports whether the message records a failure.
func (m *Message) IsError() bool {
	switch m.Type {
	case MsgPurchaseError, MsgCompletePurchaseError, MsgAuthorizeError, MsgCompleteAuthorizeError,
		MsgCreateCardError, MsgCompleteCreateCardError, MsgCaptureError, MsgRefundError,
		MsgVoidError, MsgNotificationError, MsgTransactionReferenceMismatch:
		return true
	default:
		return false
	}
}
