package billing

import (
	"fmt"

	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultDataUnitBytes is one MiB, the default billable data unit
const DefaultDataUnitBytes int64 = 1 << 20

// DataVolumeStrategy bills transferred bytes per started data unit.
// Any partial unit bills as a full unit.
type DataVolumeStrategy struct {
	unitBytes int64
}

func NewDataVolumeStrategy(unitBytes int64) *DataVolumeStrategy {
	if unitBytes <= 0 {
		unitBytes = DefaultDataUnitBytes
	}
	return &DataVolumeStrategy{unitBytes: unitBytes}
}

func (s *DataVolumeStrategy) RateType() types.RateType {
	return types.RateTypeDataVolume
}

func (s *DataVolumeStrategy) ValidateRate(r *rate.Rate) error {
	return validateRateType(r, types.RateTypeDataVolume)
}

func (s *DataVolumeStrategy) CalculateCharges(u *usage.UsageData, r *rate.Rate) (*Result, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	billableUnits := billableDataUnits(u.TotalBytes, s.unitBytes)
	amount := billableUnits.Mul(r.UnitPrice)

	return &Result{
		RateType:   types.RateTypeDataVolume,
		BaseAmount: amount,
		Currency:   r.Currency,
		Quantity:   billableUnits,
		UnitPrice:  r.UnitPrice,
		Breakdown: []ChargeLine{
			{
				Description: fmt.Sprintf("%s data units at %s/unit", billableUnits, r.UnitPrice),
				Quantity:    billableUnits,
				UnitPrice:   r.UnitPrice,
				Amount:      amount,
			},
		},
	}, nil
}

// billableDataUnits converts raw bytes into whole billable units, rounding
// any partial unit up
func billableDataUnits(totalBytes, unitBytes int64) decimal.Decimal {
	return decimal.NewFromInt(totalBytes).
		Div(decimal.NewFromInt(unitBytes)).
		Ceil()
}
