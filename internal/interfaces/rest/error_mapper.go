package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// BuildErrorResponse maps an error to its HTTP status and envelope. Internal
// errors hide their cause from the caller.
func BuildErrorResponse(err error) (int, ErrorResponse) {
	statusCode := application.ToHTTPStatus(err)
	message := err.Error()
	if statusCode >= http.StatusInternalServerError {
		if svcErr, ok := application.IsServiceError(err); ok {
			message = svcErr.Message
		}
	}

	return statusCode, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    application.ToErrorCode(err),
			Message: message,
		},
	}
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode, response := BuildErrorResponse(err)
	if statusCode >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			"error", err,
			"category", application.CategorizeError(err),
		)
	}
	WriteJSON(w, statusCode, response)
}

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteData(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, SuccessResponse{Success: true, Data: data})
}
