package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
)

// checkoutStates are the statuses that wait on the payer. Capture, refund
// and void pending states wait on the gateway and are left alone.
var checkoutStates = []domain.PaymentStatus{
	domain.StatusPendingPurchase,
	domain.StatusPendingAuthorization,
	domain.StatusPendingCreateCard,
}

// Sweeper cancels checkouts the payer abandoned on the gateway's page.
type Sweeper struct {
	store     application.Store
	factory   *services.Factory
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewSweeper(
	factory *services.Factory,
	ttl time.Duration,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		store:     factory.Deps().Store,
		factory:   factory,
		ttl:       ttl,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting checkout sweeper", "interval", s.interval, "ttl", s.ttl, "batch_size", s.batchSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping checkout sweeper")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("checkout sweep failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single sweep and reports how many payments it
// cancelled. A payment that fails to cancel is logged and skipped.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl)
	stale, err := s.store.Payments().FindStale(ctx, checkoutStates, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var cancelled int
	for _, p := range stale {
		if err := s.cancel(ctx, p); err != nil {
			s.logger.Error("failed to cancel abandoned checkout",
				"payment_id", p.ID(),
				"status", p.Status(),
				"error", err,
			)
			continue
		}
		cancelled++
	}

	s.logger.Info("checkout sweep finished", "found", len(stale), "cancelled", cancelled)
	return cancelled, nil
}

func (s *Sweeper) cancel(ctx context.Context, p *domain.Payment) error {
	intent, ok := services.IntentForStatus(p.Status())
	if !ok {
		return application.NewInvalidStateError("no service for status %s", p.Status())
	}
	svc, err := s.factory.Service(p, intent)
	if err != nil {
		return err
	}
	ctx = services.WithRequestMeta(ctx, services.RequestMeta{UserID: "sweeper"})
	_, err = svc.Cancel(ctx)
	return err
}
