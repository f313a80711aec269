package domain

import (
	"strings"

	"github.com/DanielPopoola/payment-orchestrator/internal/money"
)

// Money is an amount in a currency. Amount is a decimal string so no
// precision is lost between the caller, the store and the gateway.
type Money struct {
	Amount   string
	Currency string
}

func NewMoney(amount, currency string) (Money, error) {
	normalized, err := normalizeAmount(amount, false)
	if err != nil {
		return Money{}, err
	}
	cur, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: normalized, Currency: cur}, nil
}

// Draft holds everything that may only be set while a payment is Created.
type Draft struct {
	Gateway    string
	Money      Money
	SuccessURL string
	FailureURL string
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Gateway) == "" {
		return NewMissingRequiredFieldError("gateway")
	}
	if _, err := NewMoney(d.Money.Amount, d.Money.Currency); err != nil {
		return err
	}
	return nil
}

func normalizeAmount(amount string, allowNegative bool) (string, error) {
	d, err := money.Parse(amount)
	if err != nil {
		return "", NewInvalidAmountError(amount)
	}
	if d.IsNegative() && !allowNegative {
		return "", NewInvalidAmountError(amount)
	}
	out, err := money.Format(amount)
	if err != nil {
		return "", NewInvalidAmountError(amount)
	}
	return out, nil
}

func normalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", NewInvalidCurrencyError(currency)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", NewInvalidCurrencyError(currency)
		}
	}
	return c, nil
}
