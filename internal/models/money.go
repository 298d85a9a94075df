package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is matched by CurrencyMismatchError via errors.Is.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// CurrencyMismatchError reports an operation that mixed two currencies.
type CurrencyMismatchError struct {
	Want string
	Got  string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *CurrencyMismatchError) Is(target error) bool {
	return target == ErrCurrencyMismatch
}

// Money is an immutable amount in the smallest currency unit (e.g. cents).
// All arithmetic returns a new value; mixing currencies fails.
type Money struct {
	amount   int64
	currency string
}

func NewMoney(amount int64, currency string) Money {
	return Money{amount: amount, currency: currency}
}

func ZeroMoney(currency string) Money {
	return Money{currency: currency}
}

func (m Money) Amount() int64    { return m.amount }
func (m Money) Currency() string { return m.currency }
func (m Money) IsZero() bool     { return m.amount == 0 }
func (m Money) IsPositive() bool { return m.amount > 0 }
func (m Money) IsNegative() bool { return m.amount < 0 }

func (m Money) assertSameCurrency(o Money) error {
	if m.currency != o.currency {
		return &CurrencyMismatchError{Want: m.currency, Got: o.currency}
	}
	return nil
}

func (m Money) Add(o Money) (Money, error) {
	if err := m.assertSameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount + o.amount, currency: m.currency}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if err := m.assertSameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount - o.amount, currency: m.currency}, nil
}

// MulFraction multiplies by a decimal fraction (e.g. 0.025 for 2.5%) and
// rounds half-up to the nearest smallest unit so repeated fee calculations
// never accumulate fractional drift.
func (m Money) MulFraction(f decimal.Decimal) Money {
	product := decimal.NewFromInt(m.amount).Mul(f).Round(0)
	return Money{amount: product.IntPart(), currency: m.currency}
}

func (m Money) Abs() Money {
	if m.amount < 0 {
		return Money{amount: -m.amount, currency: m.currency}
	}
	return m
}

func (m Money) Neg() Money {
	return Money{amount: -m.amount, currency: m.currency}
}

func (m Money) Equals(o Money) bool {
	return m.currency == o.currency && m.amount == o.amount
}

func (m Money) LessThan(o Money) (bool, error) {
	if err := m.assertSameCurrency(o); err != nil {
		return false, err
	}
	return m.amount < o.amount, nil
}

func (m Money) GreaterThan(o Money) (bool, error) {
	if err := m.assertSameCurrency(o); err != nil {
		return false, err
	}
	return m.amount > o.amount, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}
