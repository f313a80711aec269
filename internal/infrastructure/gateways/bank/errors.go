package bank

import (
	"errors"
	"fmt"
)

// BankError is a non-2xx answer from the bank API.
type BankError struct {
	Code       string
	Message    string
	StatusCode int
}

type BankErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *BankError) Error() string {
	return fmt.Sprintf("bank error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// IsRetryable is true for server-side failures and throttling.
func (e *BankError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429 || e.Code == "internal_error"
}

// IsDecline is true when the bank understood the request and refused it.
// Declines become unsuccessful responses rather than transport errors.
func (e *BankError) IsDecline() bool {
	return e.StatusCode == 402 || e.StatusCode == 422
}

func IsBankError(err error) (*BankError, bool) {
	var bankErr *BankError
	ok := errors.As(err, &bankErr)
	return bankErr, ok
}
