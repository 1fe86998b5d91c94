package billing

import (
	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// FlatRateStrategy bills a fixed amount per billing period, independent of
// recorded usage. Zero usage still produces the full charge.
type FlatRateStrategy struct{}

func NewFlatRateStrategy() *FlatRateStrategy {
	return &FlatRateStrategy{}
}

func (s *FlatRateStrategy) RateType() types.RateType {
	return types.RateTypeFlatRate
}

func (s *FlatRateStrategy) ValidateRate(r *rate.Rate) error {
	return validateRateType(r, types.RateTypeFlatRate)
}

func (s *FlatRateStrategy) CalculateCharges(u *usage.UsageData, r *rate.Rate) (*Result, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)
	return &Result{
		RateType:   types.RateTypeFlatRate,
		BaseAmount: r.UnitPrice,
		Currency:   r.Currency,
		Quantity:   one,
		UnitPrice:  r.UnitPrice,
		Breakdown: []ChargeLine{
			{
				Description: "flat charge for billing period",
				Quantity:    one,
				UnitPrice:   r.UnitPrice,
				Amount:      r.UnitPrice,
			},
		},
	}, nil
}
