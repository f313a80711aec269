package domain_test

import (
	"testing"

	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	t.Run("creates payment successfully", func(t *testing.T) {
		payment, err := domain.NewPayment(domain.Draft{
			Gateway:    "Manual",
			Money:      domain.Money{Amount: "100", Currency: "usd"},
			SuccessURL: "https://shop.test/ok",
		})

		require.NoError(t, err)
		assert.Equal(t, "Manual", payment.Gateway())
		assert.Equal(t, "100.00", payment.Amount())
		assert.Equal(t, "USD", payment.Currency())
		assert.Equal(t, domain.StatusCreated, payment.Status())
		assert.Empty(t, payment.Identifier())
		assert.False(t, payment.IsPersisted())
		assert.False(t, payment.IsPartial())
	})

	t.Run("rejects empty gateway", func(t *testing.T) {
		_, err := domain.NewPayment(domain.Draft{Money: domain.Money{Amount: "1", Currency: "USD"}})
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("rejects non-numeric amount", func(t *testing.T) {
		_, err := domain.NewPayment(domain.Draft{Gateway: "Manual", Money: domain.Money{Amount: "ten", Currency: "USD"}})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := domain.NewPayment(domain.Draft{Gateway: "Manual", Money: domain.Money{Amount: "-1", Currency: "USD"}})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
	})

	t.Run("rejects malformed currency", func(t *testing.T) {
		_, err := domain.NewPayment(domain.Draft{Gateway: "Manual", Money: domain.Money{Amount: "1", Currency: "US1"}})
		assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
	})
}

func TestPayment_FieldsLockAfterCreated(t *testing.T) {
	payment := createPayment(t, "100.00")
	require.NoError(t, payment.TransitionTo(domain.StatusAuthorized))

	assert.ErrorIs(t, payment.SetAmount("5.00"), domain.ErrFieldLocked)
	assert.ErrorIs(t, payment.SetCurrency("EUR"), domain.ErrFieldLocked)
	assert.ErrorIs(t, payment.SetGateway("Other"), domain.ErrFieldLocked)

	assert.Equal(t, "100.00", payment.Amount())
	assert.Equal(t, "USD", payment.Currency())
	assert.Equal(t, "Manual", payment.Gateway())
}

func TestPayment_FieldsMutableWhileCreated(t *testing.T) {
	payment := createPayment(t, "100.00")

	require.NoError(t, payment.SetAmount("12.5"))
	require.NoError(t, payment.SetCurrency("eur"))
	require.NoError(t, payment.SetGateway("Bank"))

	assert.Equal(t, "12.50", payment.Amount())
	assert.Equal(t, "EUR", payment.Currency())
	assert.Equal(t, "Bank", payment.Gateway())
}

func TestPayment_ApplyReconciledAmountIgnoresStatus(t *testing.T) {
	payment := createPayment(t, "100.00")
	require.NoError(t, payment.TransitionTo(domain.StatusCaptured))

	require.NoError(t, payment.ApplyReconciledAmount("40"))
	assert.Equal(t, "40.00", payment.Amount())
	assert.Equal(t, domain.StatusCaptured, payment.Status())
}

func TestPayment_EnsureIdentifier(t *testing.T) {
	payment := createPayment(t, "1.00")

	first := payment.EnsureIdentifier()
	second := payment.EnsureIdentifier()

	assert.Len(t, first, 32)
	assert.Equal(t, first, second)
	assert.Regexp(t, `^[0-9a-f]+$`, first)
}

func TestPayment_StateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []domain.PaymentStatus
		target  domain.PaymentStatus
		allowed bool
	}{
		{"created to pending purchase", nil, domain.StatusPendingPurchase, true},
		{"created to captured", nil, domain.StatusCaptured, true},
		{"authorized to pending capture", []domain.PaymentStatus{domain.StatusAuthorized}, domain.StatusPendingCapture, true},
		{"pending capture back to authorized", []domain.PaymentStatus{domain.StatusAuthorized, domain.StatusPendingCapture}, domain.StatusAuthorized, true},
		{"pending refund back to captured", []domain.PaymentStatus{domain.StatusCaptured, domain.StatusPendingRefund}, domain.StatusCaptured, true},
		{"captured cannot be voided", []domain.PaymentStatus{domain.StatusCaptured}, domain.StatusVoid, false},
		{"void is final", []domain.PaymentStatus{domain.StatusVoid}, domain.StatusAuthorized, false},
		{"refunded is final", []domain.PaymentStatus{domain.StatusCaptured, domain.StatusRefunded}, domain.StatusCaptured, false},
		{"card created is final", []domain.PaymentStatus{domain.StatusCardCreated}, domain.StatusVoid, false},
		{"pending authorization cannot capture", []domain.PaymentStatus{domain.StatusPendingAuthorization}, domain.StatusCaptured, false},
		{"same status is a no-op", []domain.PaymentStatus{domain.StatusVoid}, domain.StatusVoid, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := createPayment(t, "10.00")
			for _, s := range tt.path {
				require.NoError(t, payment.TransitionTo(s))
			}

			err := payment.TransitionTo(tt.target)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.target, payment.Status())
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		})
	}
}

func TestPayment_IsTerminal(t *testing.T) {
	for _, s := range domain.AllStatuses {
		payment := domain.Reconstitute(
			uuid.New(), "ident", "Manual", "1.00", "USD", s,
			"", "", "", nil, 1, testTime, testTime,
		)
		want := s == domain.StatusCaptured || s == domain.StatusRefunded ||
			s == domain.StatusVoid || s == domain.StatusCardCreated
		assert.Equal(t, want, payment.IsTerminal(), string(s))
	}
}

func TestNewPartialPayment(t *testing.T) {
	parent := createPayment(t, "100.00")
	parent.SetTransactionReference("auth-1")
	require.NoError(t, parent.TransitionTo(domain.StatusAuthorized))

	t.Run("inherits parent details", func(t *testing.T) {
		child, err := domain.NewPartialPayment(parent, "60", domain.StatusPendingCapture)
		require.NoError(t, err)

		assert.True(t, child.IsPartial())
		assert.Equal(t, parent.ID(), *child.InitialPaymentID())
		assert.Equal(t, "60.00", child.Amount())
		assert.Equal(t, "USD", child.Currency())
		assert.Equal(t, "auth-1", child.TransactionReference())
		assert.Equal(t, domain.StatusPendingCapture, child.Status())
		assert.NotEmpty(t, child.Identifier())
	})

	t.Run("allows negative difference", func(t *testing.T) {
		child, err := domain.NewPartialPayment(parent, "-10", domain.StatusPendingCapture)
		require.NoError(t, err)
		assert.Equal(t, "-10.00", child.Amount())
	})
}

func TestParseStatus(t *testing.T) {
	s, ok := domain.ParseStatus("PendingCapture")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPendingCapture, s)

	_, ok = domain.ParseStatus("pendingcapture")
	assert.False(t, ok)
}
