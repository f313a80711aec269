package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
)

// ErrorCategory represents the nature of an error for logging and metrics
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryConfiguration  ErrorCategory = "CONFIGURATION"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines the error category for logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrStaleVersion) || errors.Is(err, ErrConcurrentUpdate) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrFieldLocked) ||
		errors.Is(err, ErrInvalidState) {
		return CategoryBusinessRule
	}

	if errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrService) {
		return CategoryConfiguration
	}

	if errors.Is(err, domain.ErrPaymentNotFound) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidCurrency) ||
		errors.Is(err, domain.ErrMissingRequiredField) ||
		errors.Is(err, ErrMissingParameter) ||
		errors.Is(err, ErrInvalidParameter) {
		return CategoryClientError
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput:
			return CategoryClientError
		case ErrCodeInternal:
			return CategoryInfrastructure
		}
	}

	return CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok && svcErr.HTTPStatus != 0 {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrMissingRequiredField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrFieldLocked),
		errors.Is(err, domain.ErrStaleVersion):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}

	return ErrCodeInternal
}
