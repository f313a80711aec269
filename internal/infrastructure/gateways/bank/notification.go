package bank

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

const SignatureHeader = "X-Bank-Signature"

var ErrInvalidSignature = errors.New("bank webhook signature mismatch")

// AcceptNotification reads the webhook event from the inbound request body.
// Without an inbound request the event fields are taken from data, which is
// only allowed when no webhook secret is configured.
func (g *Gateway) AcceptNotification(data gateway.Data) (gateway.Notification, error) {
	var event WebhookEvent

	if g.inbound != nil && g.inbound.Body != nil {
		body, err := io.ReadAll(g.inbound.Body)
		if err != nil {
			return nil, fmt.Errorf("read webhook body: %w", err)
		}
		g.inbound.Body = io.NopCloser(bytes.NewReader(body))

		if g.webhookSecret != "" {
			if !validSignature(g.webhookSecret, body, g.inbound.Header.Get(SignatureHeader)) {
				return nil, ErrInvalidSignature
			}
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &event); err != nil {
				return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedNotification, err)
			}
		}
	} else if g.webhookSecret != "" {
		return nil, ErrInvalidSignature
	}

	if event.Status == "" {
		event = WebhookEvent{
			EventID:   data.String("event_id"),
			Type:      data.String("type"),
			Status:    data.String("status"),
			Reference: data.String("reference"),
			Code:      data.String("code"),
			Message:   data.String("message"),
		}
	}
	if event.Status == "" || event.Reference == "" {
		return nil, gateway.ErrMalformedNotification
	}

	text := event.Message
	if text == "" {
		text = event.Status
	}
	return &gateway.BasicNotification{
		Status:     notificationStatus(event.Status),
		Reference:  event.Reference,
		Text:       text,
		ResultCode: event.Code,
		Raw:        event,
	}, nil
}

func notificationStatus(status string) gateway.NotificationStatus {
	switch status {
	case StatusAuthorized, StatusCaptured, StatusVoided, StatusRefunded, StatusCompleted, StatusActive:
		return gateway.NotificationCompleted
	case StatusPending, StatusProcessing:
		return gateway.NotificationPending
	default:
		return gateway.NotificationFailed
	}
}

// Sign returns the signature the bank sends for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(got, want)
}
