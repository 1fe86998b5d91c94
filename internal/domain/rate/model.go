package rate

import (
	"math"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Rate is a priced unit bound to a billing plan for a time window.
// For RateTypeTime the UnitPrice is the hourly rate; for RateTypeDataVolume
// it is the price per data unit; for RateTypeFlatRate it is the charge per
// billing period. RateTypeTieredData prices through Tiers instead.
// A rate referenced by a sent invoice item is immutable; plans only ever
// append new rates with later windows.
type Rate struct {
	ID            string          `json:"id"`
	PlanID        string          `json:"plan_id"`
	RateType      types.RateType  `json:"rate_type"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Tiers         []Tier          `json:"tiers,omitempty"`
	Currency      string          `json:"currency"`
	EffectiveDate time.Time       `json:"effective_date"`
	ExpiryDate    time.Time       `json:"expiry_date"`

	types.BaseModel
}

// Tier is a usage bracket with its own unit price. UsageLimit is the
// cumulative number of units the tier covers; nil on the final tier means
// open-ended, so excess usage keeps billing at that tier's price.
type Tier struct {
	UsageLimit *uint64         `json:"usage_limit"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// GetUsageLimit returns the limit treating the open-ended case as MaxUint64.
// Only to be used for sorting tiers.
func (t Tier) GetUsageLimit() uint64 {
	if t.UsageLimit != nil {
		return *t.UsageLimit
	}
	return math.MaxUint64
}

// Validate checks the rate's static configuration
func (r *Rate) Validate() error {
	if err := r.RateType.Validate(); err != nil {
		return err
	}
	if r.Currency == "" {
		return ierr.NewError("rate has no currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if r.UnitPrice.IsNegative() {
		return ierr.NewError("negative unit price").
			WithHint("Unit price must be non negative").
			Mark(ierr.ErrValidation)
	}
	if r.EffectiveDate.IsZero() {
		return ierr.NewError("rate has no effective date").
			WithHint("Effective date is required").
			Mark(ierr.ErrValidation)
	}
	if !r.ExpiryDate.IsZero() && !r.ExpiryDate.After(r.EffectiveDate) {
		return ierr.NewError("rate expires before it becomes effective").
			WithHint("Expiry date must be after effective date").
			Mark(ierr.ErrValidation)
	}
	if r.RateType == types.RateTypeTieredData {
		return r.validateTiers()
	}
	return nil
}

func (r *Rate) validateTiers() error {
	if len(r.Tiers) == 0 {
		return ierr.NewError("tiered rate has no tiers").
			WithHint("At least one tier is required for tiered rates").
			Mark(ierr.ErrValidation)
	}
	var prev uint64
	for i, tier := range r.Tiers {
		if tier.UnitPrice.IsNegative() {
			return ierr.NewError("negative tier unit price").
				WithHint("Tier unit price must be non negative").
				WithReportableDetails(map[string]any{"tier": i}).
				Mark(ierr.ErrValidation)
		}
		if tier.UsageLimit == nil {
			// open-ended tier must be the last one
			if i != len(r.Tiers)-1 {
				return ierr.NewError("open-ended tier is not last").
					WithHint("Only the final tier may omit a usage limit").
					Mark(ierr.ErrValidation)
			}
			continue
		}
		if *tier.UsageLimit == 0 || *tier.UsageLimit <= prev {
			return ierr.NewError("tier limits are not strictly ascending").
				WithHint("Tier usage limits must be positive and strictly ascending").
				WithReportableDetails(map[string]any{"tier": i}).
				Mark(ierr.ErrValidation)
		}
		prev = *tier.UsageLimit
	}
	return nil
}

// ContainsTime reports whether t falls inside the rate's effective window.
// A zero expiry date means the rate never expires.
func (r *Rate) ContainsTime(t time.Time) bool {
	if t.Before(r.EffectiveDate) {
		return false
	}
	if r.ExpiryDate.IsZero() {
		return true
	}
	return t.Before(r.ExpiryDate)
}

// OverlapsWith reports whether two effective windows intersect
func (r *Rate) OverlapsWith(other *Rate) bool {
	rEnd := r.ExpiryDate
	oEnd := other.ExpiryDate

	// both open-ended windows always collide eventually
	if rEnd.IsZero() && oEnd.IsZero() {
		return true
	}
	if rEnd.IsZero() {
		return oEnd.After(r.EffectiveDate)
	}
	if oEnd.IsZero() {
		return rEnd.After(other.EffectiveDate)
	}
	return r.EffectiveDate.Before(oEnd) && other.EffectiveDate.Before(rEnd)
}
