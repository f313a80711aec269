// Package domain holds the payment entity, its lifecycle and the audit trail
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	StatusCreated              PaymentStatus = "Created"
	StatusPendingAuthorization PaymentStatus = "PendingAuthorization"
	StatusAuthorized           PaymentStatus = "Authorized"
	StatusPendingCreateCard    PaymentStatus = "PendingCreateCard"
	StatusCardCreated          PaymentStatus = "CardCreated"
	StatusPendingPurchase      PaymentStatus = "PendingPurchase"
	StatusPendingCapture       PaymentStatus = "PendingCapture"
	StatusCaptured             PaymentStatus = "Captured"
	StatusPendingRefund        PaymentStatus = "PendingRefund"
	StatusRefunded             PaymentStatus = "Refunded"
	StatusPendingVoid          PaymentStatus = "PendingVoid"
	StatusVoid                 PaymentStatus = "Void"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []PaymentStatus{
	StatusCreated, StatusPendingAuthorization, StatusAuthorized,
	StatusPendingCreateCard, StatusCardCreated, StatusPendingPurchase,
	StatusPendingCapture, StatusCaptured, StatusPendingRefund,
	StatusRefunded, StatusPendingVoid, StatusVoid,
}

func ParseStatus(s string) (PaymentStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type Payment struct {
	id                   uuid.UUID
	identifier           string
	gateway              string
	amount               string
	currency             string
	status               PaymentStatus
	transactionReference string
	successURL           string
	failureURL           string
	initialPaymentID     *uuid.UUID
	version              int
	createdAt            time.Time
	updatedAt            time.Time
}

// NewPayment starts a payment in the Created status from a validated draft.
func NewPayment(d Draft) (*Payment, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	m, _ := NewMoney(d.Money.Amount, d.Money.Currency)
	now := time.Now().UTC()

	return &Payment{
		id:         uuid.New(),
		gateway:    strings.TrimSpace(d.Gateway),
		amount:     m.Amount,
		currency:   m.Currency,
		status:     StatusCreated,
		successURL: d.SuccessURL,
		failureURL: d.FailureURL,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// NewPartialPayment creates the bookkeeping child of a capture or refund.
// The amount may be negative when the parent operation exceeds the tracked
// amount.
func NewPartialPayment(parent *Payment, amount string, status PaymentStatus) (*Payment, error) {
	normalized, err := normalizeAmount(amount, true)
	if err != nil {
		return nil, err
	}
	parentID := parent.id
	now := time.Now().UTC()

	child := &Payment{
		id:                   uuid.New(),
		gateway:              parent.gateway,
		amount:               normalized,
		currency:             parent.currency,
		status:               StatusCreated,
		transactionReference: parent.transactionReference,
		successURL:           parent.successURL,
		failureURL:           parent.failureURL,
		initialPaymentID:     &parentID,
		createdAt:            now,
		updatedAt:            now,
	}
	child.EnsureIdentifier()
	if err := child.TransitionTo(status); err != nil {
		return nil, err
	}
	return child, nil
}

func (p *Payment) ID() uuid.UUID                { return p.id }
func (p *Payment) Identifier() string           { return p.identifier }
func (p *Payment) Gateway() string              { return p.gateway }
func (p *Payment) Amount() string               { return p.amount }
func (p *Payment) Currency() string             { return p.currency }
func (p *Payment) Status() PaymentStatus        { return p.status }
func (p *Payment) TransactionReference() string { return p.transactionReference }
func (p *Payment) SuccessURL() string           { return p.successURL }
func (p *Payment) FailureURL() string           { return p.failureURL }
func (p *Payment) InitialPaymentID() *uuid.UUID { return p.initialPaymentID }
func (p *Payment) Version() int                 { return p.version }
func (p *Payment) CreatedAt() time.Time         { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time         { return p.updatedAt }

func (p *Payment) Money() Money {
	return Money{Amount: p.amount, Currency: p.currency}
}

// IsPartial reports whether this payment is the child of another payment.
func (p *Payment) IsPartial() bool {
	return p.initialPaymentID != nil
}

// IsPersisted reports whether a store has written this payment at least once.
func (p *Payment) IsPersisted() bool {
	return p.version > 0
}

// SetAmount, SetCurrency and SetGateway only apply while the payment is
// Created. Otherwise they return ErrFieldLocked and change nothing.
func (p *Payment) SetAmount(amount string) error {
	if p.status != StatusCreated {
		return NewFieldLockedError("amount", p.status)
	}
	normalized, err := normalizeAmount(amount, false)
	if err != nil {
		return err
	}
	p.amount = normalized
	return nil
}

func (p *Payment) SetCurrency(currency string) error {
	if p.status != StatusCreated {
		return NewFieldLockedError("currency", p.status)
	}
	c, err := normalizeCurrency(currency)
	if err != nil {
		return err
	}
	p.currency = c
	return nil
}

func (p *Payment) SetGateway(gateway string) error {
	if p.status != StatusCreated {
		return NewFieldLockedError("gateway", p.status)
	}
	if strings.TrimSpace(gateway) == "" {
		return NewMissingRequiredFieldError("gateway")
	}
	p.gateway = strings.TrimSpace(gateway)
	return nil
}

func (p *Payment) SetSuccessURL(u string) { p.successURL = u }
func (p *Payment) SetFailureURL(u string) { p.failureURL = u }

func (p *Payment) SetTransactionReference(ref string) {
	p.transactionReference = ref
}

// ApplyReconciledAmount rewrites the amount regardless of status. Only
// partial payment reconciliation calls it.
func (p *Payment) ApplyReconciledAmount(amount string) error {
	normalized, err := normalizeAmount(amount, true)
	if err != nil {
		return err
	}
	p.amount = normalized
	return nil
}

// EnsureIdentifier assigns the public identifier on first use and returns it.
func (p *Payment) EnsureIdentifier() string {
	if p.identifier == "" {
		p.identifier = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return p.identifier
}

// MarkPersisted is called by stores after a successful write.
func (p *Payment) MarkPersisted(version int, at time.Time) {
	p.version = version
	p.updatedAt = at
}

// TransitionTo moves the payment to target. Staying in the current status is
// always allowed.
func (p *Payment) TransitionTo(target PaymentStatus) error {
	if target == p.status {
		return nil
	}
	if err := p.canTransitionTo(target); err != nil {
		return err
	}
	p.status = target
	return nil
}

func (p *Payment) canTransitionTo(target PaymentStatus) error {
	switch p.status {
	case StatusCreated:
		return p.allow(target,
			StatusPendingAuthorization, StatusAuthorized,
			StatusPendingPurchase, StatusCaptured,
			StatusPendingCreateCard, StatusCardCreated,
			StatusPendingCapture, StatusPendingRefund,
			StatusVoid,
		)
	case StatusPendingAuthorization:
		return p.allow(target, StatusAuthorized, StatusVoid)
	case StatusAuthorized:
		return p.allow(target, StatusPendingCapture, StatusCaptured, StatusPendingVoid, StatusVoid)
	case StatusPendingCapture:
		return p.allow(target, StatusCaptured, StatusAuthorized, StatusRefunded, StatusVoid)
	case StatusPendingPurchase:
		return p.allow(target, StatusCaptured, StatusVoid)
	case StatusCaptured:
		return p.allow(target, StatusPendingRefund, StatusRefunded)
	case StatusPendingRefund:
		return p.allow(target, StatusRefunded, StatusCaptured, StatusVoid)
	case StatusPendingVoid:
		return p.allow(target, StatusVoid, StatusAuthorized)
	case StatusPendingCreateCard:
		return p.allow(target, StatusCardCreated, StatusVoid)
	}
	return NewInvalidTransitionError(p.status, target)
}

func (p *Payment) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(p.status, target)
}

// IsTerminal reports whether the payment finished its own flow. Captured
// payments can still be refunded but are never cancelled.
func (p *Payment) IsTerminal() bool {
	switch p.status {
	case StatusCaptured, StatusRefunded, StatusVoid, StatusCardCreated:
		return true
	default:
		return false
	}
}

// IsPending reports whether the payment waits on the gateway.
func (p *Payment) IsPending() bool {
	switch p.status {
	case StatusPendingAuthorization, StatusPendingCreateCard, StatusPendingPurchase,
		StatusPendingCapture, StatusPendingRefund, StatusPendingVoid:
		return true
	default:
		return false
	}
}

// Reconstitute - Special constructor for loading from storage
func Reconstitute(
	id uuid.UUID, identifier, gateway string,
	amount, currency string,
	status PaymentStatus,
	transactionReference, successURL, failureURL string,
	initialPaymentID *uuid.UUID,
	version int,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:                   id,
		identifier:           identifier,
		gateway:              gateway,
		amount:               amount,
		currency:             currency,
		status:               status,
		transactionReference: transactionReference,
		successURL:           successURL,
		failureURL:           failureURL,
		initialPaymentID:     initialPaymentID,
		version:              version,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

// Clone returns an independent copy.
func (p *Payment) Clone() *Payment {
	c := *p
	if p.initialPaymentID != nil {
		id := *p.initialPaymentID
		c.initialPaymentID = &id
	}
	return &c
}
