package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func createPayment(t *testing.T, amount string) *domain.Payment {
	t.Helper()
	payment, err := domain.NewPayment(domain.Draft{
		Gateway: "Manual",
		Money:   domain.Money{Amount: amount, Currency: "USD"},
	})
	require.NoError(t, err)
	return payment
}
