package money_test

import (
	"testing"

	"github.com/DanielPopoola/payment-orchestrator/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator_TruncatesInsteadOfRounding(t *testing.T) {
	tests := []struct {
		name      string
		precision int32
		op        func(c money.Calculator, a, b string) (string, error)
		a, b      string
		want      string
	}{
		{"subtract at precision 0", 0, money.Calculator.Subtract, "10.0", "0.1", "9"},
		{"add at precision 1", 1, money.Calculator.Add, "0.273", "0.226", "0.4"},
		{"add pads to precision", 2, money.Calculator.Add, "10", "0.1", "10.10"},
		{"multiply drops extra digits", 2, money.Calculator.Multiply, "10.555", "1", "10.55"},
		{"multiply by minus one", 2, money.Calculator.Multiply, "60.00", "-1", "-60.00"},
		{"negative result truncates toward zero", 0, money.Calculator.Subtract, "0.1", "10.0", "-9"},
		{"no float drift", 2, money.Calculator.Add, "0.1", "0.2", "0.30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(money.New(tt.precision), tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculator_Compare(t *testing.T) {
	c := money.New(2)

	tests := []struct {
		a, b string
		want int
	}{
		{"100.00", "100", 0},
		{"40.00", "100.00", -1},
		{"100.01", "100.00", 1},
		// digits beyond the precision are ignored
		{"10.009", "10.001", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, err := c.Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculator_RejectsNonNumeric(t *testing.T) {
	_, err := money.Add("abc", "1")
	assert.ErrorIs(t, err, money.ErrNotNumeric)

	_, err = money.Compare("1", "")
	assert.ErrorIs(t, err, money.ErrNotNumeric)

	assert.False(t, money.IsNumeric("12,50"))
	assert.True(t, money.IsNumeric(" 12.50 "))
}

func TestIsPositive(t *testing.T) {
	assert.True(t, money.IsPositive("0.01"))
	assert.False(t, money.IsPositive("0"))
	assert.False(t, money.IsPositive("-5"))
	assert.False(t, money.IsPositive("five"))
}

func TestRepeatedPartialOperationsConserveTotal(t *testing.T) {
	remaining := "100.00"
	captured := "0"

	for i := 0; i < 3; i++ {
		var err error
		remaining, err = money.Subtract(remaining, "33.33")
		require.NoError(t, err)
		captured, err = money.Add(captured, "33.33")
		require.NoError(t, err)
	}

	total, err := money.Add(remaining, captured)
	require.NoError(t, err)
	assert.Equal(t, "100.00", total)
	assert.Equal(t, "0.01", remaining)
}
