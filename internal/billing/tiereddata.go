package billing

import (
	"fmt"

	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// TieredDataStrategy bills transferred data through graduated tiers: each
// tier prices only the slice of units falling inside its bracket. Usage
// beyond the last tier's limit keeps billing at the last tier's price.
type TieredDataStrategy struct {
	unitBytes int64
}

func NewTieredDataStrategy(unitBytes int64) *TieredDataStrategy {
	if unitBytes <= 0 {
		unitBytes = DefaultDataUnitBytes
	}
	return &TieredDataStrategy{unitBytes: unitBytes}
}

func (s *TieredDataStrategy) RateType() types.RateType {
	return types.RateTypeTieredData
}

func (s *TieredDataStrategy) ValidateRate(r *rate.Rate) error {
	return validateRateType(r, types.RateTypeTieredData)
}

func (s *TieredDataStrategy) CalculateCharges(u *usage.UsageData, r *rate.Rate) (*Result, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	totalUnits := billableDataUnits(u.TotalBytes, s.unitBytes)
	remaining := totalUnits
	total := decimal.Zero
	breakdown := make([]ChargeLine, 0, len(r.Tiers))

	var consumed uint64
	for i, tier := range r.Tiers {
		if remaining.IsZero() {
			break
		}

		take := remaining
		if i < len(r.Tiers)-1 && tier.UsageLimit != nil {
			capacity := decimal.NewFromUint64(*tier.UsageLimit - consumed)
			if take.GreaterThan(capacity) {
				take = capacity
			}
			consumed = *tier.UsageLimit
		}
		// the final tier absorbs everything left, limited or not

		amount := take.Mul(tier.UnitPrice)
		total = total.Add(amount)
		remaining = remaining.Sub(take)

		breakdown = append(breakdown, ChargeLine{
			Description: fmt.Sprintf("tier %d: %s units at %s/unit", i+1, take, tier.UnitPrice),
			Quantity:    take,
			UnitPrice:   tier.UnitPrice,
			Amount:      amount,
		})
	}

	return &Result{
		RateType:   types.RateTypeTieredData,
		BaseAmount: total,
		Currency:   r.Currency,
		Quantity:   totalUnits,
		Breakdown:  breakdown,
	}, nil
}
