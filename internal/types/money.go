package types

import (
	"fmt"
	"strings"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount tagged with a currency. All binary
// operations require both operands to carry the same currency; mixing
// currencies fails with ErrCurrencyMismatch. Amounts are kept at full
// precision; rounding happens only when a final amount is fixed via Round.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney creates a Money value with a normalized lowercase currency code
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// ZeroMoney returns the zero amount in the given currency
func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

// NewMoneyFromString parses a decimal string into a Money value
func NewMoneyFromString(amount string, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, ierr.WithError(err).
			WithHintf("invalid amount: %s", amount).
			Mark(ierr.ErrValidation)
	}
	return NewMoney(d, currency), nil
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return ierr.NewError("money operands have different currencies").
			WithHint("Amounts in different currencies cannot be combined").
			WithReportableDetails(map[string]any{
				"currency":       m.Currency,
				"other_currency": other.Currency,
			}).
			MarkAll(ierr.ErrCurrencyMismatch, ierr.ErrConsistency)
	}
	return nil
}

// Add returns m + other, failing on currency mismatch
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other, failing on currency mismatch
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// MulScalar returns m scaled by a dimensionless factor
func (m Money) MulScalar(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
// Fails on currency mismatch.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.Amount.Cmp(other.Amount), nil
}

// Equal reports whether both amount and currency match
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// Round returns the amount rounded half-up to the currency's minor unit.
// Only call this when fixing a final amount; intermediate sums stay at
// full precision.
func (m Money) Round() Money {
	return Money{
		Amount:   m.Amount.Round(GetCurrencyPrecision(m.Currency)),
		Currency: m.Currency,
	}
}

// Display formats the amount with its currency symbol, e.g. $12.50
func (m Money) Display() string {
	config := GetCurrencyConfig(m.Currency)
	return fmt.Sprintf("%s%s", config.Symbol, m.Amount.Round(config.Precision).String())
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}
