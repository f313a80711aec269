package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `
	id, identifier, gateway, amount::text, currency, status,
	transaction_reference, success_url, failure_url, initial_payment_id,
	version, created_at, updated_at`

type PaymentRepository struct {
	q persistence.Executor
}

func NewPaymentRepository(q persistence.Executor) *PaymentRepository {
	return &PaymentRepository{q: q}
}

// now is truncated to what a timestamptz column keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, identifier, gateway, amount, currency, status,
			transaction_reference, success_url, failure_url, initial_payment_id,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, 1, $11, $12)
	`

	payment.EnsureIdentifier()
	p := toDBModel(payment)
	at := now()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = at
	}

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.Identifier,
		p.Gateway,
		p.Amount,
		p.Currency,
		p.Status,
		p.TransactionReference,
		p.SuccessURL,
		p.FailureURL,
		p.InitialPaymentID,
		createdAt,
		at,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return fmt.Errorf("payment %s already exists: %w", p.ID, err)
		}
		if persistence.IsForeignKeyViolation(err) && p.InitialPaymentID != nil {
			return domain.NewPaymentNotFoundError(p.InitialPaymentID.String())
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.MarkPersisted(1, at)
	return nil
}

// Update writes the mutable columns only when the stored version still
// matches the one the payment was loaded with.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET gateway = $1, amount = $2::numeric, currency = $3, status = $4,
			transaction_reference = $5, success_url = $6, failure_url = $7,
			version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`

	p := toDBModel(payment)
	at := now()

	result, err := r.q.Exec(ctx, query,
		p.Gateway,
		p.Amount,
		p.Currency,
		p.Status,
		p.TransactionReference,
		p.SuccessURL,
		p.FailureURL,
		at,
		p.ID,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, p.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check payment: %w", err)
		}
		if !exists {
			return domain.NewPaymentNotFoundError(p.ID.String())
		}
		return domain.NewStaleVersionError(p.ID.String(), p.Version)
	}

	payment.MarkPersisted(p.Version+1, at)
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.q.QueryRow(ctx, query, id), id.String())
}

// FindByIDForUpdate retrieves a payment with a row-level lock held until the
// surrounding transaction ends.
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPayment(r.q.QueryRow(ctx, query, id), id.String())
}

func (r *PaymentRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Payment, error) {
	if identifier == "" {
		return nil, domain.NewPaymentNotFoundError(identifier)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE identifier = $1`
	return scanPayment(r.q.QueryRow(ctx, query, identifier), identifier)
}

// FindPartials orders by insertion sequence, newest first.
func (r *PaymentRepository) FindPartials(ctx context.Context, parentID uuid.UUID, status domain.PaymentStatus) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE initial_payment_id = $1
		  AND ($2::text = '' OR status = $2::text)
		ORDER BY seq DESC
	`

	rows, err := r.q.Query(ctx, query, parentID, string(status))
	if err != nil {
		return nil, fmt.Errorf("query partial payments: %w", err)
	}
	results, err := pgx.CollectRows(rows, collectPayment)
	if err != nil {
		return nil, fmt.Errorf("scan partial payments: %w", err)
	}
	return results, nil
}

// FindStale returns top-level payments in statuses not touched since cutoff.
// A limit of zero means no limit.
func (r *PaymentRepository) FindStale(ctx context.Context, statuses []domain.PaymentStatus, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE initial_payment_id IS NULL
		  AND status = ANY($1::text[])
		  AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT NULLIF($3::int, 0)
	`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.q.Query(ctx, query, names, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale payments: %w", err)
	}
	results, err := pgx.CollectRows(rows, collectPayment)
	if err != nil {
		return nil, fmt.Errorf("scan stale payments: %w", err)
	}
	return results, nil
}

func collectPayment(row pgx.CollectableRow) (*domain.Payment, error) {
	var m PaymentModel
	if err := scanModel(row, &m); err != nil {
		return nil, err
	}
	return toDomainModel(m), nil
}

func scanModel(row pgx.Row, m *PaymentModel) error {
	return row.Scan(
		&m.ID, &m.Identifier, &m.Gateway, &m.Amount, &m.Currency, &m.Status,
		&m.TransactionReference, &m.SuccessURL, &m.FailureURL, &m.InitialPaymentID,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
}

// scanPayment converts a database row into a domain Payment.
// Returns a not-found domain error if the row doesn't exist.
func scanPayment(row pgx.Row, key string) (*domain.Payment, error) {
	var m PaymentModel
	if err := scanModel(row, &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainModel(m), nil
}
