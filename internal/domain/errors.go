package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business rule violated by the payment entity
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeFieldLocked          = "FIELD_LOCKED"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency      = "INVALID_CURRENCY"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeStaleVersion         = "STALE_VERSION"
)

var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrFieldLocked          = errors.New("field can only change while payment is Created")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrStaleVersion means another writer committed the payment first.
	ErrStaleVersion = errors.New("payment was modified concurrently")
)

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Err:     ErrInvalidTransition,
	}
}

func NewFieldLockedError(field string, status PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeFieldLocked,
		Message: fmt.Sprintf("%s cannot change in status %s", field, status),
		Err:     ErrFieldLocked,
	}
}

func NewPaymentNotFoundError(key string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment %s not found", key),
		Err:     ErrPaymentNotFound,
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %q", amount),
		Err:     ErrInvalidAmount,
	}
}

func NewInvalidCurrencyError(currency string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCurrency,
		Message: fmt.Sprintf("invalid currency %q", currency),
		Err:     ErrInvalidCurrency,
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
		Err:     ErrMissingRequiredField,
	}
}

func NewStaleVersionError(id string, version int) *DomainError {
	return &DomainError{
		Code:    ErrCodeStaleVersion,
		Message: fmt.Sprintf("payment %s is no longer at version %d", id, version),
		Err:     ErrStaleVersion,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
