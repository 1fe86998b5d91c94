package types

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/samber/lo"
)

// RateType is the billing model bound to a rate, e.g. TIME for
// duration-based charges or TIERED_DATA for graduated volume pricing.
// Each rate type maps to exactly one billing strategy.
type RateType string

const (
	// RateTypeTime bills ceil(session_seconds/60) minutes at hourly_rate/60
	RateTypeTime RateType = "TIME"
	// RateTypeDataVolume bills ceil(total_bytes/unit_size) units at a per-unit rate
	RateTypeDataVolume RateType = "DATA_VOLUME"
	// RateTypeTieredData consumes usage tier-by-tier in ascending limit order
	RateTypeTieredData RateType = "TIERED_DATA"
	// RateTypeFlatRate bills a fixed charge per billing period
	RateTypeFlatRate RateType = "FLAT_RATE"
)

func (t RateType) String() string {
	return string(t)
}

func (t RateType) Validate() error {
	allowed := []RateType{
		RateTypeTime,
		RateTypeDataVolume,
		RateTypeTieredData,
		RateTypeFlatRate,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid rate type").
			WithHint("Please provide a valid rate type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
