package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MessageRepository is append-only: there is no update or delete.
type MessageRepository struct {
	q persistence.Executor
}

func NewMessageRepository(q persistence.Executor) *MessageRepository {
	return &MessageRepository{q: q}
}

func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO payment_messages (
			id, payment_id, type, message, code, reference, data, user_id, client_ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	m := toMessageModel(msg)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.PaymentID, m.Type, m.Message, m.Code, m.Reference,
		m.Data, m.UserID, m.ClientIP, m.CreatedAt,
	)
	if err != nil {
		if persistence.IsForeignKeyViolation(err) {
			return domain.NewPaymentNotFoundError(m.PaymentID.String())
		}
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.Message, error) {
	query := `
		SELECT id, payment_id, type, message, code, reference, data, user_id, client_ip, created_at
		FROM payment_messages
		WHERE payment_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.q.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Message, error) {
		var m MessageModel
		err := row.Scan(
			&m.ID, &m.PaymentID, &m.Type, &m.Message, &m.Code, &m.Reference,
			&m.Data, &m.UserID, &m.ClientIP, &m.CreatedAt,
		)
		return toDomainMessage(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return results, nil
}
