package types

import (
	"testing"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyArithmetic(t *testing.T) {
	ten := NewMoney(decimal.NewFromInt(10), "usd")
	three, err := NewMoneyFromString("3.50", "USD")
	require.NoError(t, err)
	assert.Equal(t, "usd", three.Currency, "currency codes normalize to lowercase")

	sum, err := ten.Add(three)
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.RequireFromString("13.5")))

	diff, err := ten.Sub(three)
	require.NoError(t, err)
	assert.True(t, diff.Amount.Equal(decimal.RequireFromString("6.5")))

	cmp, err := ten.Cmp(three)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	usd := NewMoney(decimal.NewFromInt(10), "usd")
	eur := NewMoney(decimal.NewFromInt(10), "eur")

	_, err := usd.Add(eur)
	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrCurrencyMismatch))
	assert.True(t, ierr.Is(err, ierr.ErrConsistency))

	_, err = usd.Sub(eur)
	assert.Error(t, err)

	_, err = usd.Cmp(eur)
	assert.Error(t, err)
}

func TestMoneyRound(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "rounds half up", amount: "0.605", want: "0.61"},
		{name: "rounds down below half", amount: "0.604999", want: "0.6"},
		{name: "exact minor unit unchanged", amount: "12.50", want: "12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoney(decimal.RequireFromString(tt.amount), "usd")
			got := m.Round()
			assert.True(t, got.Amount.Equal(decimal.RequireFromString(tt.want)),
				"got %s", got.Amount)
		})
	}
}

func TestMoneyIntermediateSumsKeepPrecision(t *testing.T) {
	// three thirds of a cent only reach a full cent if the parts are
	// never rounded individually
	third := NewMoney(decimal.RequireFromString("0.003333333333"), "usd")
	sum := ZeroMoney("usd")
	for i := 0; i < 3; i++ {
		s, err := sum.Add(third)
		require.NoError(t, err)
		sum = s
	}
	assert.True(t, sum.Round().Amount.Equal(decimal.RequireFromString("0.01")))
}

func TestMonthlyBillingPeriod(t *testing.T) {
	p := NewMonthlyBillingPeriod(time.Date(2026, 1, 15, 13, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), p.End)
	assert.Equal(t, "2026-01", p.Label())

	assert.True(t, p.Contains(p.Start), "period start is inclusive")
	assert.False(t, p.Contains(p.End), "period end is exclusive")
}

func TestInvoiceStatusTransitions(t *testing.T) {
	tests := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{InvoiceStatusDraft, InvoiceStatusSent, true},
		{InvoiceStatusDraft, InvoiceStatusVoided, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusSent, InvoiceStatusPartiallyPaid, true},
		{InvoiceStatusSent, InvoiceStatusPaid, true},
		{InvoiceStatusSent, InvoiceStatusDraft, false},
		{InvoiceStatusPartiallyPaid, InvoiceStatusPaid, true},
		{InvoiceStatusPartiallyPaid, InvoiceStatusVoided, true},
		{InvoiceStatusPaid, InvoiceStatusVoided, false},
		{InvoiceStatusVoided, InvoiceStatusSent, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
	assert.True(t, InvoiceStatusPaid.IsTerminal())
	assert.True(t, InvoiceStatusVoided.IsTerminal())
}
