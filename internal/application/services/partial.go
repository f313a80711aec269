package services

import (
	"context"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/money"
)

// latestPartial returns the newest child of p in status and voids the older
// ones. Only the newest pending child reflects the amount the gateway is
// working on.
func latestPartial(ctx context.Context, tx application.Store, p *domain.Payment, status domain.PaymentStatus) (*domain.Payment, error) {
	children, err := tx.Payments().FindPartials(ctx, p.ID(), status)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	for _, stale := range children[1:] {
		if err := stale.TransitionTo(domain.StatusVoid); err != nil {
			return nil, err
		}
		if err := tx.Payments().Update(ctx, stale); err != nil {
			return nil, err
		}
	}
	return children[0], nil
}

// voidPartials voids every child of p in status.
func voidPartials(ctx context.Context, tx application.Store, p *domain.Payment, status domain.PaymentStatus) error {
	children, err := tx.Payments().FindPartials(ctx, p.ID(), status)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := c.TransitionTo(domain.StatusVoid); err != nil {
			return err
		}
		if err := tx.Payments().Update(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// requestedAmount reads the optional amount from the caller's data. An
// absent amount means the payment's full amount.
func requestedAmount(p *domain.Payment, raw string) (amount string, partial bool, err error) {
	if raw == "" {
		return p.Amount(), false, nil
	}
	amount, err = money.Format(raw)
	if err != nil {
		return "", false, application.NewInvalidParameterError("amount %q: %v", raw, err)
	}
	if !money.IsPositive(amount) {
		return "", false, application.NewInvalidParameterError("amount %q must be a positive number", raw)
	}
	cmp, err := money.Compare(amount, p.Amount())
	if err != nil {
		return "", false, application.NewInternalError(err)
	}
	return amount, cmp != 0, nil
}

// ratio keeps enough digits for a percentage turned into a factor.
var ratio = money.New(8)

// maxCapture is the payment's amount plus the allowed excess: a percentage
// of the amount, capped by the fixed per-currency amount when one is set.
func maxCapture(info *gatewayinfo.Registry, p *domain.Payment) (string, error) {
	percent, err := ratio.Multiply(info.MaxExcessCapturePercent(p.Gateway()), "0.01")
	if err != nil {
		return "", application.NewInvalidConfigurationError("max excess percent: %v", err)
	}
	excess, err := money.Multiply(p.Amount(), percent)
	if err != nil {
		return "", application.NewInternalError(err)
	}

	if fixed := info.MaxExcessCaptureAmount(p.Gateway(), p.Currency()); fixed != "" {
		cmp, err := money.Compare(fixed, excess)
		if err != nil {
			return "", application.NewInvalidConfigurationError("max excess amount: %v", err)
		}
		if cmp < 0 {
			excess = fixed
		}
	}

	limit, err := money.Add(p.Amount(), excess)
	if err != nil {
		return "", application.NewInternalError(err)
	}
	return limit, nil
}

func subtract(a, b string) (string, error) {
	out, err := money.Subtract(a, b)
	if err != nil {
		return "", application.NewInternalError(err)
	}
	return out, nil
}

func compare(a, b string) (int, error) {
	out, err := money.Compare(a, b)
	if err != nil {
		return 0, application.NewInternalError(err)
	}
	return out, nil
}
