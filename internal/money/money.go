// Package money does fixed-precision arithmetic on decimal-string amounts.
//
// Every result is truncated toward zero at the calculator's precision and is
// never rounded: Subtract("10.0", "0.1") at precision 0 is "9". Partial
// capture and refund bookkeeping depends on this, so the behaviour is pinned
// by tests.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of fractional digits used by the package
// level helpers.
const DefaultPrecision int32 = 2

var ErrNotNumeric = errors.New("amount is not numeric")

type Calculator struct {
	precision int32
}

func New(precision int32) Calculator {
	if precision < 0 {
		precision = 0
	}
	return Calculator{precision: precision}
}

var std = New(DefaultPrecision)

func (c Calculator) Precision() int32 {
	return c.precision
}

func (c Calculator) Add(a, b string) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return c.format(x.Add(y)), nil
}

func (c Calculator) Subtract(a, b string) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return c.format(x.Sub(y)), nil
}

func (c Calculator) Multiply(a, b string) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return c.format(x.Mul(y)), nil
}

// Compare returns -1, 0 or 1. Both operands are truncated to the calculator
// precision before comparing.
func (c Calculator) Compare(a, b string) (int, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return 0, err
	}
	return x.Truncate(c.precision).Cmp(y.Truncate(c.precision)), nil
}

// Format normalises an amount to the calculator precision.
func (c Calculator) Format(a string) (string, error) {
	d, err := Parse(a)
	if err != nil {
		return "", err
	}
	return c.format(d), nil
}

func (c Calculator) format(d decimal.Decimal) string {
	return d.Truncate(c.precision).StringFixed(c.precision)
}

// Parse reads a decimal string. Surrounding whitespace is ignored.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return d, nil
}

func IsNumeric(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// IsPositive reports whether s is numeric and strictly greater than zero.
func IsPositive(s string) bool {
	d, err := Parse(s)
	return err == nil && d.IsPositive()
}

func Add(a, b string) (string, error) { return std.Add(a, b) }
func Subtract(a, b string) (string, error) { return std.Subtract(a, b) }
func Multiply(a, b string) (string, error) { return std.Multiply(a, b) }
func Compare(a, b string) (int, error) { return std.Compare(a, b) }
func Format(a string) (string, error) { return std.Format(a) }

func parsePair(a, b string) (decimal.Decimal, decimal.Decimal, error) {
	x, err := Parse(a)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	y, err := Parse(b)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return x, y, nil
}
