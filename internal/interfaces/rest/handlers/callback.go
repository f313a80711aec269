package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
)

const (
	ActionComplete = "complete"
	ActionCancel   = "cancel"
	ActionNotify   = "notify"
)

const maxCallbackBody = 1 << 20

// PaymentEndpoint receives the payer's return from an offsite gateway and
// the gateway's asynchronous notifications. The payment is located by its
// public identifier and the service is chosen from its current status.
func (h *Handlers) PaymentEndpoint(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	switch action {
	case ActionComplete, ActionCancel, ActionNotify:
	default:
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	payment, err := h.store.Payments().FindByIdentifier(ctx, r.PathValue("identifier"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	intent, ok := services.IntentForStatus(payment.Status())
	if !ok {
		h.logger.WarnContext(ctx, "callback for payment in unexpected status",
			"payment_id", payment.ID(),
			"status", payment.Status(),
			"action", action,
		)
		rest.WriteError(w, &application.ServiceError{
			Code:       application.ErrCodeInvalidState,
			Message:    fmt.Sprintf("payment in status %s does not accept callbacks", payment.Status()),
			HTTPStatus: http.StatusForbidden,
		}, h.logger)
		return
	}

	svc, err := h.factory.Service(payment, intent)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	data, err := callbackData(r)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	ctx = services.WithInboundRequest(ctx, r)
	ctx = services.WithRequestMeta(ctx, services.RequestMeta{ClientIP: rest.ClientIP(r)})

	var resp *services.ServiceResponse
	switch action {
	case ActionComplete:
		resp, err = svc.Complete(ctx, data, false)
	case ActionNotify:
		resp, err = svc.Complete(ctx, data, true)
	case ActionCancel:
		resp, err = svc.Cancel(ctx)
	}
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	h.logger.InfoContext(ctx, "payment callback handled",
		"payment_id", payment.ID(),
		"action", action,
		"status", resp.Payment().Status(),
		"error", resp.IsError(),
	)
	resp.RedirectOrRespond().Write(w)
}

// callbackData merges the query string with a JSON or form body. Body keys
// win. The body is put back on r so gateways can verify signatures over it.
func callbackData(r *http.Request) (gateway.Data, error) {
	data := gateway.Data{}
	for k, v := range r.URL.Query() {
		data[k] = v[0]
	}
	if r.Body == nil {
		return data, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return nil, fmt.Errorf("read callback body: %w", err)
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("decode callback body: %w", err)
		}
		for k, v := range fields {
			data[k] = v
		}
	case "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("decode callback form: %w", err)
		}
		for k, v := range form {
			data[k] = v[0]
		}
	}
	return data, nil
}
