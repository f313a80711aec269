package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
)

// Recovery creates middleware that recovers from panics and returns 500.
// http.ErrAbortHandler is passed on so the server can abort the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.ErrorContext(r.Context(),
					"panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"client_ip", rest.ClientIP(r),
					"stack", string(debug.Stack()),
				)

				err := application.NewInternalError(fmt.Errorf("panic: %v", rec))
				rest.WriteError(w, err, nil)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
