package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches on Code, so errors.Is(err, ErrInvalidState) holds for any
// invalid state error whatever its message.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

const (
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeMissingParameter     = "MISSING_PARAMETER"
	ErrCodeInvalidParameter     = "INVALID_PARAMETER"
	ErrCodeService              = "SERVICE_ERROR"
	ErrCodeConcurrentUpdate     = "CONCURRENT_UPDATE"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeInvalidInput         = "INVALID_INPUT"
)

var (
	ErrInvalidState         = &ServiceError{Code: ErrCodeInvalidState}
	ErrInvalidConfiguration = &ServiceError{Code: ErrCodeInvalidConfiguration}
	ErrMissingParameter     = &ServiceError{Code: ErrCodeMissingParameter}
	ErrInvalidParameter     = &ServiceError{Code: ErrCodeInvalidParameter}
	ErrService              = &ServiceError{Code: ErrCodeService}
	ErrConcurrentUpdate     = &ServiceError{Code: ErrCodeConcurrentUpdate}
)

func NewInvalidStateError(format string, args ...any) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidState,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusConflict,
	}
}

func NewInvalidConfigurationError(format string, args ...any) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidConfiguration,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewMissingParameterError(format string, args ...any) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMissingParameter,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInvalidParameterError(format string, args ...any) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidParameter,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewServiceError reports misuse of a service response, such as changing the
// target URL of a gateway redirect.
func NewServiceError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeService,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewConcurrentUpdateError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeConcurrentUpdate,
		Message:    "payment was updated by another request",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
