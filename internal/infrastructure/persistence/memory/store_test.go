package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayment(t *testing.T) *domain.Payment {
	t.Helper()
	p, err := domain.NewPayment(domain.Draft{
		Gateway: "Dummy",
		Money:   domain.Money{Amount: "100", Currency: "USD"},
	})
	require.NoError(t, err)
	return p
}

func TestStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p := newPayment(t)

	require.NoError(t, s.Payments().Create(ctx, p))
	assert.Equal(t, 1, p.Version())
	assert.NotEmpty(t, p.Identifier())

	byID, err := s.Payments().FindByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.Identifier(), byID.Identifier())

	byIdent, err := s.Payments().FindByIdentifier(ctx, p.Identifier())
	require.NoError(t, err)
	assert.Equal(t, p.ID(), byIdent.ID())

	_, err = s.Payments().FindByIdentifier(ctx, "")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	assert.Error(t, s.Payments().Create(ctx, p), "duplicate id")
}

func TestStore_UpdateIsOptimistic(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p := newPayment(t)
	require.NoError(t, s.Payments().Create(ctx, p))

	first, _ := s.Payments().FindByID(ctx, p.ID())
	second, _ := s.Payments().FindByID(ctx, p.ID())

	require.NoError(t, first.TransitionTo(domain.StatusAuthorized))
	require.NoError(t, s.Payments().Update(ctx, first))
	assert.Equal(t, 2, first.Version())

	require.NoError(t, second.TransitionTo(domain.StatusVoid))
	err := s.Payments().Update(ctx, second)
	assert.ErrorIs(t, err, domain.ErrStaleVersion)

	stored, _ := s.Payments().FindByID(ctx, p.ID())
	assert.Equal(t, domain.StatusAuthorized, stored.Status())
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p := newPayment(t)
	require.NoError(t, s.Payments().Create(ctx, p))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx application.Store) error {
		current, err := tx.Payments().FindByIDForUpdate(ctx, p.ID())
		if err != nil {
			return err
		}
		if err := current.TransitionTo(domain.StatusAuthorized); err != nil {
			return err
		}
		if err := tx.Payments().Update(ctx, current); err != nil {
			return err
		}
		if err := tx.Messages().Append(ctx, domain.NewMessage(p.ID(), domain.MsgAuthorizedResponse)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, _ := s.Payments().FindByID(ctx, p.ID())
	assert.Equal(t, domain.StatusCreated, stored.Status())
	assert.Equal(t, 1, stored.Version())

	msgs, err := s.Messages().FindByPaymentID(ctx, p.ID())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStore_FindPartials(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	parent := newPayment(t)
	require.NoError(t, parent.TransitionTo(domain.StatusAuthorized))
	require.NoError(t, s.Payments().Create(ctx, parent))

	var ids []string
	for _, amount := range []string{"10", "20", "30"} {
		child, err := domain.NewPartialPayment(parent, amount, domain.StatusPendingCapture)
		require.NoError(t, err)
		require.NoError(t, s.Payments().Create(ctx, child))
		ids = append(ids, child.ID().String())
	}

	children, err := s.Payments().FindPartials(ctx, parent.ID(), domain.StatusPendingCapture)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, ids[2], children[0].ID().String())
	assert.Equal(t, ids[0], children[2].ID().String())

	none, err := s.Payments().FindPartials(ctx, parent.ID(), domain.StatusCaptured)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_FindStale(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	pending := newPayment(t)
	require.NoError(t, pending.TransitionTo(domain.StatusPendingPurchase))
	require.NoError(t, s.Payments().Create(ctx, pending))

	done := newPayment(t)
	require.NoError(t, done.TransitionTo(domain.StatusCaptured))
	require.NoError(t, s.Payments().Create(ctx, done))

	child, err := domain.NewPartialPayment(pending, "5", domain.StatusPendingCapture)
	require.NoError(t, err)
	require.NoError(t, s.Payments().Create(ctx, child))

	statuses := []domain.PaymentStatus{domain.StatusPendingPurchase, domain.StatusPendingCapture}

	stale, err := s.Payments().FindStale(ctx, statuses, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, pending.ID(), stale[0].ID())

	fresh, err := s.Payments().FindStale(ctx, statuses, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestStore_AppendNeedsPayment(t *testing.T) {
	s := memory.NewStore()
	err := s.Messages().Append(context.Background(), domain.NewMessage(newPayment(t).ID(), domain.MsgPurchaseRequest))
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}
