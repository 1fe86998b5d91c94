package tax

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Context carries the situational inputs a tax rule may depend on, such
// as the jurisdiction the invoice is billed under. Calculators that do
// not differentiate by jurisdiction ignore it.
type Context struct {
	Jurisdiction string            `json:"jurisdiction,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Calculator computes the tax owed on an invoice subtotal. Implementations
// must be pure: same subtotal and context in, same tax out.
type Calculator interface {
	Name() string
	Calculate(subtotal types.Money, taxCtx Context) (types.Money, error)
}

// NoopCalculator charges no tax
type NoopCalculator struct{}

func NewNoopCalculator() *NoopCalculator {
	return &NoopCalculator{}
}

func (c *NoopCalculator) Name() string {
	return "noop"
}

func (c *NoopCalculator) Calculate(subtotal types.Money, _ Context) (types.Money, error) {
	return types.ZeroMoney(subtotal.Currency), nil
}

// PercentageCalculator charges a fixed percentage of the subtotal,
// e.g. Percent 19 for a 19% tax rate. The percentage applies uniformly
// across jurisdictions.
type PercentageCalculator struct {
	Percent decimal.Decimal
}

func NewPercentageCalculator(percent decimal.Decimal) (*PercentageCalculator, error) {
	if percent.IsNegative() {
		return nil, ierr.NewError("negative tax percentage").
			WithHint("Tax percentage must be non negative").
			WithReportableDetails(map[string]any{
				"percent": percent,
			}).
			Mark(ierr.ErrValidation)
	}
	return &PercentageCalculator{Percent: percent}, nil
}

func (c *PercentageCalculator) Name() string {
	return "percentage"
}

func (c *PercentageCalculator) Calculate(subtotal types.Money, _ Context) (types.Money, error) {
	if subtotal.IsNegative() {
		return types.Money{}, ierr.NewError("negative subtotal").
			WithHint("Tax cannot be calculated on a negative subtotal").
			Mark(ierr.ErrValidation)
	}
	amount := subtotal.Amount.Mul(c.Percent).Div(decimal.NewFromInt(100))
	return types.NewMoney(amount, subtotal.Currency), nil
}
