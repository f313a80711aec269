package handlers

import (
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/go-playground/validator"
)

// PaymentDefaults fill in the URLs a create request leaves out.
type PaymentDefaults struct {
	SuccessURL string
	FailureURL string
}

// Handlers serves the payment API and the gateway callback endpoint.
type Handlers struct {
	factory  *services.Factory
	store    application.Store
	info     *gatewayinfo.Registry
	defaults PaymentDefaults
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandlers(factory *services.Factory, defaults PaymentDefaults, logger *slog.Logger) *Handlers {
	deps := factory.Deps()
	return &Handlers{
		factory:  factory,
		store:    deps.Store,
		info:     deps.Info,
		defaults: defaults,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts every route on mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/payments", h.CreatePayment)
	mux.HandleFunc("GET /api/v1/payments/{id}", h.GetPayment)
	mux.HandleFunc("GET /api/v1/payments/{id}/messages", h.ListMessages)
	mux.HandleFunc("POST /api/v1/payments/{id}/{intent}", h.InitiatePayment)
	mux.HandleFunc("GET /api/v1/gateways", h.ListGateways)

	mux.HandleFunc("/paymentendpoint/{identifier}/{action}", h.PaymentEndpoint)
}
