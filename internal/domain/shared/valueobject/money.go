package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

// BRL is the only currency the ledger books in
const BRL Currency = "BRL"

// MinorDigits is the number of decimal places of the minor currency unit
const MinorDigits int32 = 2

var (
	hundred   = decimal.NewFromInt(100)
	minorUnit = decimal.New(1, -MinorDigits)
)

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return Money{amount: d}, nil
}

// NewMoneyFromMinor creates Money from an amount in minor units (cents)
func NewMoneyFromMinor(minor int64) Money {
	return Money{amount: decimal.New(minor, -MinorDigits)}
}

// MustMoney parses amount and panics on failure. Intended for constants and tests.
func MustMoney(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return BRL
}

// MinorUnits returns the amount in minor units, rounding half away from zero
func (m Money) MinorUnits() int64 {
	return m.amount.Round(MinorDigits).Shift(MinorDigits).IntPart()
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Subtract returns a new Money with the difference
func (m Money) Subtract(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Multiply returns a new Money multiplied by the given factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor)}
}

// Round returns a new Money rounded half-up to the minor unit
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(MinorDigits)}
}

// Percentage returns percent/100 of the amount, rounded to the minor unit
func (m Money) Percentage(percent decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(percent).Div(hundred).Round(MinorDigits)}
}

// FloorDiv splits the amount into n equal parts truncated to the minor unit.
// It returns the per-part amount and what is left over after n parts.
func (m Money) FloorDiv(n int) (Money, Money, error) {
	if n <= 0 {
		return Money{}, Money{}, errors.New("divisor must be positive")
	}
	total := m.amount.Round(MinorDigits)
	count := decimal.NewFromInt(int64(n))
	part := total.Div(count).Truncate(MinorDigits)
	remainder := total.Sub(part.Mul(count))
	return Money{amount: part}, Money{amount: remainder}, nil
}

// Equals returns true if both amounts are equal
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(MinorDigits), BRL)
}

// StringFixed returns the amount with the minor-unit number of decimals
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MinorDigits)
}

// MarshalJSON encodes the amount as a fixed-point string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.StringFixed(MinorDigits))
}

// UnmarshalJSON accepts both string and numeric JSON amounts
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid amount: %s", string(data))
		}
		s = n.String()
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into Money: %w", value, err)
	}
	m.amount = d
	return nil
}

// MinorUnit returns the smallest representable amount (0.01)
func MinorUnit() Money {
	return Money{amount: minorUnit}
}
