package rest

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/google/uuid"
)

type Payment struct {
	ID                   uuid.UUID  `json:"id"`
	Identifier           string     `json:"identifier"`
	Gateway              string     `json:"gateway"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	TransactionReference string     `json:"transaction_reference,omitempty"`
	SuccessURL           string     `json:"success_url,omitempty"`
	FailureURL           string     `json:"failure_url,omitempty"`
	InitialPaymentID     *uuid.UUID `json:"initial_payment_id,omitempty"`
	Version              int        `json:"version"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type Message struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Code      string          `json:"code,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	ClientIP  string          `json:"client_ip,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ServiceResult struct {
	Payment        Payment           `json:"payment"`
	Error          bool              `json:"error"`
	Pending        bool              `json:"pending"`
	Cancelled      bool              `json:"cancelled"`
	Redirect       bool              `json:"redirect"`
	TargetURL      string            `json:"target_url"`
	RedirectMethod string            `json:"redirect_method,omitempty"`
	RedirectData   map[string]string `json:"redirect_data,omitempty"`
	Message        string            `json:"message,omitempty"`
	Code           string            `json:"code,omitempty"`
}

func ToAPIPayment(p *domain.Payment) Payment {
	return Payment{
		ID:                   p.ID(),
		Identifier:           p.Identifier(),
		Gateway:              p.Gateway(),
		Amount:               p.Amount(),
		Currency:             p.Currency(),
		Status:               string(p.Status()),
		TransactionReference: p.TransactionReference(),
		SuccessURL:           p.SuccessURL(),
		FailureURL:           p.FailureURL(),
		InitialPaymentID:     p.InitialPaymentID(),
		Version:              p.Version(),
		CreatedAt:            p.CreatedAt(),
		UpdatedAt:            p.UpdatedAt(),
	}
}

func ToAPIMessages(msgs []*domain.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{
			ID:        m.ID,
			Type:      string(m.Type),
			Message:   m.Message,
			Code:      m.Code,
			Reference: m.Reference,
			Data:      m.Data,
			UserID:    m.UserID,
			ClientIP:  m.ClientIP,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

// ToServiceResult summarises a service response for API callers. A gateway
// redirect wins over the payment's own success and failure URLs.
func ToServiceResult(resp *services.ServiceResponse) ServiceResult {
	result := ServiceResult{
		Payment:   ToAPIPayment(resp.Payment()),
		Error:     resp.IsError(),
		Pending:   resp.IsAwaitingNotification(),
		Cancelled: resp.IsCancelled(),
		Redirect:  resp.IsRedirect(),
		TargetURL: resp.TargetURL(),
	}

	if msg := resp.GatewayResponse(); msg != nil {
		result.Message = msg.Message()
		result.Code = msg.Code()
	}
	if gwResp, ok := resp.GatewayResponse().(gateway.Response); ok && gwResp.IsRedirect() {
		result.TargetURL = gwResp.RedirectURL()
		result.RedirectMethod = http.MethodGet
		if rr, ok := gwResp.(gateway.RedirectResponse); ok {
			result.RedirectMethod = rr.RedirectMethod()
			result.RedirectData = rr.RedirectData()
		}
	}
	return result
}

// ClientIP prefers the first X-Forwarded-For hop over the peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
