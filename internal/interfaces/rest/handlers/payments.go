package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

type CreatePaymentRequest struct {
	Gateway    string `json:"gateway" validate:"required"`
	Amount     string `json:"amount" validate:"required,numeric"`
	Currency   string `json:"currency" validate:"required,len=3"`
	SuccessURL string `json:"success_url" validate:"omitempty,url"`
	FailureURL string `json:"failure_url" validate:"omitempty,url"`
}

type InitiateRequest struct {
	Data map[string]any `json:"data"`
}

// checkoutIntents collect card data, so their required fields are checked
// before the gateway sees the request.
var checkoutIntents = []services.Intent{
	services.IntentAuthorize,
	services.IntentPurchase,
	services.IntentPayment,
	services.IntentCreateCard,
}

var apiIntents = append(slices.Clone(checkoutIntents),
	services.IntentCapture,
	services.IntentRefund,
	services.IntentVoid,
)

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.info.CheckAllowed(req.Gateway); err != nil {
		rest.WriteError(w, application.NewInvalidParameterError("gateway %q is not available", req.Gateway), h.logger)
		return
	}

	draft := domain.Draft{
		Gateway:    req.Gateway,
		Money:      domain.Money{Amount: req.Amount, Currency: strings.ToUpper(req.Currency)},
		SuccessURL: firstNonEmpty(req.SuccessURL, h.defaults.SuccessURL),
		FailureURL: firstNonEmpty(req.FailureURL, h.defaults.FailureURL),
	}
	payment, err := domain.NewPayment(draft)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	if err := h.store.Payments().Create(r.Context(), payment); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "payment created",
		"payment_id", payment.ID(),
		"gateway", payment.Gateway(),
		"amount", payment.Amount(),
		"currency", payment.Currency(),
	)
	rest.WriteData(w, http.StatusCreated, rest.ToAPIPayment(payment))
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}
	rest.WriteData(w, http.StatusOK, rest.ToAPIPayment(payment))
}

func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}

	var msgType string
	if err := runtime.BindQueryParameter("form", true, false, "type", r.URL.Query(), &msgType); err != nil {
		rest.WriteError(w, application.NewInvalidParameterError("invalid type parameter: %v", err), h.logger)
		return
	}

	msgs, err := h.store.Messages().FindByPaymentID(r.Context(), payment.ID())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	if msgType != "" {
		msgs = slices.DeleteFunc(msgs, func(m *domain.Message) bool {
			return string(m.Type) != msgType
		})
	}
	rest.WriteData(w, http.StatusOK, rest.ToAPIMessages(msgs))
}

// InitiatePayment starts the operation named by the intent. Gateway failures
// are part of the result, only precondition and configuration errors fail
// the request.
func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var intent string
	err := runtime.BindStyledParameterWithOptions("simple", "intent", r.PathValue("intent"), &intent,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || !slices.Contains(apiIntents, services.Intent(intent)) {
		rest.WriteError(w, application.NewInvalidParameterError("unknown intent %q", r.PathValue("intent")), h.logger)
		return
	}

	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}

	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	data := gateway.Data(req.Data)
	if data == nil {
		data = gateway.Data{}
	}

	if slices.Contains(checkoutIntents, services.Intent(intent)) {
		if err := h.checkRequiredFields(payment, data); err != nil {
			rest.WriteError(w, err, h.logger)
			return
		}
	}

	svc, err := h.factory.Service(payment, services.Intent(intent))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	ctx := services.WithRequestMeta(r.Context(), services.RequestMeta{
		ClientIP: rest.ClientIP(r),
		UserID:   r.Header.Get("X-User-ID"),
	})
	resp, err := svc.Initiate(ctx, data)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteData(w, http.StatusOK, rest.ToServiceResult(resp))
}

func (h *Handlers) ListGateways(w http.ResponseWriter, _ *http.Request) {
	allowed := h.info.AllowedGateways()
	views := make([]any, 0, len(allowed))
	for _, name := range allowed {
		views = append(views, h.info.Describe(name))
	}
	rest.WriteData(w, http.StatusOK, views)
}

// checkRequiredFields is skipped when a stored card token is supplied.
func (h *Handlers) checkRequiredFields(payment *domain.Payment, data gateway.Data) error {
	if data.Has(h.info.TokenKey(payment.Gateway(), services.DefaultTokenKey)) {
		return nil
	}
	var missing []string
	for _, f := range h.info.RequiredFields(payment.Gateway()) {
		if !data.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return application.NewMissingParameterError("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (h *Handlers) loadPayment(w http.ResponseWriter, r *http.Request) (*domain.Payment, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", r.PathValue("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		rest.WriteError(w, application.NewInvalidParameterError("invalid payment id: %v", err), h.logger)
		return nil, false
	}

	payment, err := h.store.Payments().FindByID(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return nil, false
	}
	return payment, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
