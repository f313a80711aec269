package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway/gatewaytest"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeper(t *testing.T) (*Sweeper, *memory.Store) {
	t.Helper()
	gw := gatewaytest.New("Dummy", gatewaytest.AllOperations...)
	gateways := gatewaytest.NewFactory(gw)
	info, err := gatewayinfo.NewRegistry(gateways, nil, []string{"Dummy"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	factory := services.NewFactory(services.Deps{
		Store:           store,
		Gateways:        gateways,
		Info:            info,
		Extensions:      services.NewExtensions(logger, false),
		Logger:          logger,
		EndpointBaseURL: "https://pay.test",
	})
	return NewSweeper(factory, 2*time.Hour, time.Minute, 10, logger), store
}

func seed(t *testing.T, store *memory.Store, path ...domain.PaymentStatus) *domain.Payment {
	t.Helper()
	p, err := domain.NewPayment(domain.Draft{
		Gateway:    "Dummy",
		Money:      domain.Money{Amount: "10.00", Currency: "USD"},
		SuccessURL: "https://shop.test/success",
		FailureURL: "https://shop.test/failure",
	})
	require.NoError(t, err)
	for _, status := range path {
		require.NoError(t, p.TransitionTo(status))
	}
	p.EnsureIdentifier()
	require.NoError(t, store.Payments().Create(context.Background(), p))
	return p
}

func status(t *testing.T, store *memory.Store, p *domain.Payment) domain.PaymentStatus {
	t.Helper()
	fresh, err := store.Payments().FindByID(context.Background(), p.ID())
	require.NoError(t, err)
	return fresh.Status()
}

func TestSweeper_CancelsAbandonedCheckouts(t *testing.T) {
	ctx := context.Background()
	s, store := newSweeper(t)

	purchase := seed(t, store, domain.StatusPendingPurchase)
	authorize := seed(t, store, domain.StatusPendingAuthorization)
	createCard := seed(t, store, domain.StatusPendingCreateCard)
	capture := seed(t, store, domain.StatusAuthorized, domain.StatusPendingCapture)
	captured := seed(t, store, domain.StatusCaptured)

	s.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	cancelled, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cancelled)

	assert.Equal(t, domain.StatusVoid, status(t, store, purchase))
	assert.Equal(t, domain.StatusVoid, status(t, store, authorize))
	assert.Equal(t, domain.StatusVoid, status(t, store, createCard))
	assert.Equal(t, domain.StatusPendingCapture, status(t, store, capture))
	assert.Equal(t, domain.StatusCaptured, status(t, store, captured))

	msgs, err := store.Messages().FindByPaymentID(ctx, purchase.ID())
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, domain.MsgCancelledResponse, last.Type)
	assert.Equal(t, "sweeper", last.UserID)
}

func TestSweeper_LeavesRecentCheckouts(t *testing.T) {
	s, store := newSweeper(t)
	p := seed(t, store, domain.StatusPendingPurchase)

	cancelled, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, cancelled)
	assert.Equal(t, domain.StatusPendingPurchase, status(t, store, p))
}

func TestSweeper_RespectsBatchSize(t *testing.T) {
	s, store := newSweeper(t)
	s.batchSize = 2
	for range 3 {
		seed(t, store, domain.StatusPendingPurchase)
	}
	s.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	first, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

func TestSweeper_StartStopsWithContext(t *testing.T) {
	s, _ := newSweeper(t)
	s.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
