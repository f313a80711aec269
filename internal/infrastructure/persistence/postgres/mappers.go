package postgres

import (
	"encoding/json"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
)

// toDomainModel: maps db model to domain entity
func toDomainModel(m PaymentModel) *domain.Payment {
	return domain.Reconstitute(
		m.ID,
		m.Identifier,
		m.Gateway,
		m.Amount,
		m.Currency,
		domain.PaymentStatus(m.Status),
		deref(m.TransactionReference),
		deref(m.SuccessURL),
		deref(m.FailureURL),
		m.InitialPaymentID,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

// toDBModel: maps domain entity to db model
func toDBModel(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:                   p.ID(),
		Identifier:           p.Identifier(),
		Gateway:              p.Gateway(),
		Amount:               p.Amount(),
		Currency:             p.Currency(),
		Status:               string(p.Status()),
		TransactionReference: nullable(p.TransactionReference()),
		SuccessURL:           nullable(p.SuccessURL()),
		FailureURL:           nullable(p.FailureURL()),
		InitialPaymentID:     p.InitialPaymentID(),
		Version:              p.Version(),
		CreatedAt:            p.CreatedAt(),
		UpdatedAt:            p.UpdatedAt(),
	}
}

func toDomainMessage(m MessageModel) *domain.Message {
	msg := &domain.Message{
		ID:        m.ID,
		PaymentID: m.PaymentID,
		Type:      domain.MessageType(m.Type),
		Message:   deref(m.Message),
		Code:      deref(m.Code),
		Reference: deref(m.Reference),
		UserID:    deref(m.UserID),
		ClientIP:  deref(m.ClientIP),
		CreatedAt: m.CreatedAt,
	}
	if len(m.Data) > 0 {
		msg.Data = json.RawMessage(m.Data)
	}
	return msg
}

func toMessageModel(msg *domain.Message) *MessageModel {
	m := &MessageModel{
		ID:        msg.ID,
		PaymentID: msg.PaymentID,
		Type:      string(msg.Type),
		Message:   nullable(msg.Message),
		Code:      nullable(msg.Code),
		Reference: nullable(msg.Reference),
		UserID:    nullable(msg.UserID),
		ClientIP:  nullable(msg.ClientIP),
		CreatedAt: msg.CreatedAt,
	}
	if len(msg.Data) > 0 {
		m.Data = msg.Data
	}
	return m
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
