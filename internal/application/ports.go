package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/google/uuid"
)

// PaymentRepository is the port for payment persistence.
//
// Update is optimistic: it fails with domain.ErrStaleVersion when the stored
// version differs from payment.Version(). Both Create and Update call
// payment.MarkPersisted on success.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Payment, error)
	// FindPartials returns the children of parentID in the given status,
	// newest first. An empty status returns every child.
	FindPartials(ctx context.Context, parentID uuid.UUID, status domain.PaymentStatus) ([]*domain.Payment, error)
	// FindStale returns top-level payments in one of statuses that were last
	// updated before cutoff, oldest first.
	FindStale(ctx context.Context, statuses []domain.PaymentStatus, cutoff time.Time, limit int) ([]*domain.Payment, error)
}

// MessageRepository stores the append-only audit trail.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) error
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.Message, error)
}

// Store groups the repositories so they can share a transaction.
type Store interface {
	Payments() PaymentRepository
	Messages() MessageRepository
	// WithTx runs fn against a transactional view of the store. Returning an
	// error rolls back everything fn wrote.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
