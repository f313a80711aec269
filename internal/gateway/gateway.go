// Package gateway describes what the orchestrator needs from a payment
// gateway integration. A gateway advertises each operation it supports by
// implementing the matching verb interface and reporting it from Supports.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

type Operation string

const (
	OpPurchase           Operation = "purchase"
	OpCompletePurchase   Operation = "completePurchase"
	OpAuthorize          Operation = "authorize"
	OpCompleteAuthorize  Operation = "completeAuthorize"
	OpCapture            Operation = "capture"
	OpRefund             Operation = "refund"
	OpVoid               Operation = "void"
	OpCreateCard         Operation = "createCard"
	OpCompleteCreateCard Operation = "completeCreateCard"
	OpAcceptNotification Operation = "acceptNotification"
)

var ErrUnsupported = errors.New("operation not supported by gateway")

type Gateway interface {
	Name() string
	Supports(op Operation) bool
}

type Purchaser interface {
	Purchase(data Data) Request
}

type PurchaseCompleter interface {
	CompletePurchase(data Data) Request
}

type Authorizer interface {
	Authorize(data Data) Request
}

type AuthorizeCompleter interface {
	CompleteAuthorize(data Data) Request
}

type Capturer interface {
	Capture(data Data) Request
}

type Refunder interface {
	Refund(data Data) Request
}

type Voider interface {
	Void(data Data) Request
}

type CardCreator interface {
	CreateCard(data Data) Request
}

type CardCreateCompleter interface {
	CompleteCreateCard(data Data) Request
}

// NotificationAcceptor parses an inbound server-to-server callback. The raw
// HTTP request is handed to the gateway at construction via WithHTTPRequest.
type NotificationAcceptor interface {
	AcceptNotification(data Data) (Notification, error)
}

// Request is a prepared gateway call. Any error returned by Send is a
// gateway-level failure.
type Request interface {
	Data() Data
	Send(ctx context.Context) (Response, error)
}

// Message is what responses and notifications have in common.
type Message interface {
	TransactionReference() string
	Message() string
	Code() string
	Data() any
}

type Response interface {
	Message
	IsSuccessful() bool
	IsRedirect() bool
	RedirectURL() string
}

// RedirectResponse is implemented by responses that need more than a plain
// GET redirect, e.g. an auto-submitting POST form.
type RedirectResponse interface {
	Response
	RedirectMethod() string
	RedirectData() map[string]string
}

type NotificationStatus string

const (
	NotificationCompleted NotificationStatus = "completed"
	NotificationPending   NotificationStatus = "pending"
	NotificationFailed    NotificationStatus = "failed"
)

type Notification interface {
	Message
	TransactionStatus() NotificationStatus
}

// Supports reports whether g implements op and says so.
func Supports(g Gateway, op Operation) bool {
	if g == nil || !g.Supports(op) {
		return false
	}

	var ok bool
	switch op {
	case OpPurchase:
		_, ok = g.(Purchaser)
	case OpCompletePurchase:
		_, ok = g.(PurchaseCompleter)
	case OpAuthorize:
		_, ok = g.(Authorizer)
	case OpCompleteAuthorize:
		_, ok = g.(AuthorizeCompleter)
	case OpCapture:
		_, ok = g.(Capturer)
	case OpRefund:
		_, ok = g.(Refunder)
	case OpVoid:
		_, ok = g.(Voider)
	case OpCreateCard:
		_, ok = g.(CardCreator)
	case OpCompleteCreateCard:
		_, ok = g.(CardCreateCompleter)
	case OpAcceptNotification:
		_, ok = g.(NotificationAcceptor)
	}
	return ok
}

// NewRequest builds the request for a verb operation. OpAcceptNotification
// is not a request and has to go through AcceptNotification.
func NewRequest(g Gateway, op Operation, data Data) (Request, error) {
	if !Supports(g, op) {
		return nil, fmt.Errorf("%w: %s does not support %s", ErrUnsupported, g.Name(), op)
	}

	switch op {
	case OpPurchase:
		return g.(Purchaser).Purchase(data), nil
	case OpCompletePurchase:
		return g.(PurchaseCompleter).CompletePurchase(data), nil
	case OpAuthorize:
		return g.(Authorizer).Authorize(data), nil
	case OpCompleteAuthorize:
		return g.(AuthorizeCompleter).CompleteAuthorize(data), nil
	case OpCapture:
		return g.(Capturer).Capture(data), nil
	case OpRefund:
		return g.(Refunder).Refund(data), nil
	case OpVoid:
		return g.(Voider).Void(data), nil
	case OpCreateCard:
		return g.(CardCreator).CreateCard(data), nil
	case OpCompleteCreateCard:
		return g.(CardCreateCompleter).CompleteCreateCard(data), nil
	}
	return nil, fmt.Errorf("%w: %s is not a request operation", ErrUnsupported, op)
}

// AcceptNotification returns ErrUnsupported when g cannot parse callbacks.
// A nil notification without an error is reported as a malformed one.
func AcceptNotification(g Gateway, data Data) (Notification, error) {
	if !Supports(g, OpAcceptNotification) {
		return nil, fmt.Errorf("%w: %s does not accept notifications", ErrUnsupported, g.Name())
	}
	n, err := g.(NotificationAcceptor).AcceptNotification(data)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrMalformedNotification
	}
	return n, nil
}

var ErrMalformedNotification = errors.New("gateway returned a malformed notification")
