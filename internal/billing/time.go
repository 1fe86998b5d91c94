package billing

import (
	"fmt"

	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// TimeStrategy bills session duration per started minute at an hourly rate.
// Any partial minute bills as a full minute.
type TimeStrategy struct{}

func NewTimeStrategy() *TimeStrategy {
	return &TimeStrategy{}
}

func (s *TimeStrategy) RateType() types.RateType {
	return types.RateTypeTime
}

func (s *TimeStrategy) ValidateRate(r *rate.Rate) error {
	return validateRateType(r, types.RateTypeTime)
}

func (s *TimeStrategy) CalculateCharges(u *usage.UsageData, r *rate.Rate) (*Result, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	billableMinutes := decimal.NewFromInt(u.SessionSeconds).Div(sixty).Ceil()
	minuteRate := r.UnitPrice.Div(sixty)
	amount := billableMinutes.Mul(minuteRate)

	return &Result{
		RateType:   types.RateTypeTime,
		BaseAmount: amount,
		Currency:   r.Currency,
		Quantity:   billableMinutes,
		UnitPrice:  minuteRate,
		Breakdown: []ChargeLine{
			{
				Description: fmt.Sprintf("%s minutes at %s/hour", billableMinutes, r.UnitPrice),
				Quantity:    billableMinutes,
				UnitPrice:   minuteRate,
				Amount:      amount,
			},
		},
	}, nil
}
