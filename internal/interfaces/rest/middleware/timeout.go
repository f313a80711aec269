package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
)

var timeoutBody = func() string {
	b, _ := json.Marshal(rest.ErrorResponse{
		Error: rest.ErrorDetail{Code: "TIMEOUT", Message: "Request timeout"},
	})
	return string(b)
}()

// Timeout bounds the whole request, gateway round trips included. A zero
// timeout disables it.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
