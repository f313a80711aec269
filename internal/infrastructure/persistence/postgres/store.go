// Package postgres implements application.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store hands out repositories bound either to the pool or, inside WithTx,
// to a single transaction.
type Store struct {
	pool *pgxpool.Pool
	q    persistence.Executor
	tx   pgx.Tx
}

func NewStore(db *persistence.DB) *Store {
	return &Store{pool: db.Pool, q: db.Pool}
}

func (s *Store) Payments() application.PaymentRepository {
	return &PaymentRepository{q: s.q}
}

func (s *Store) Messages() application.MessageRepository {
	return &MessageRepository{q: s.q}
}

// WithTx executes fn within a database transaction. Calls made on an
// already transactional Store join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx application.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&Store{pool: s.pool, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
