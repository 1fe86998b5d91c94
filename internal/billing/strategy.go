package billing

import (
	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Strategy is a pluggable algorithm turning (usage, rate) into a charge.
// New billing modes plug in through the registry without touching the
// invoice aggregate.
type Strategy interface {
	// RateType names the rate configuration this strategy prices
	RateType() types.RateType
	// ValidateRate is the pre-flight configuration check a caller must run
	// before binding a rate to a plan. CalculateCharges does not re-validate
	// configuration, only usage shape.
	ValidateRate(r *rate.Rate) error
	// CalculateCharges prices the usage against the rate at full precision
	CalculateCharges(u *usage.UsageData, r *rate.Rate) (*Result, error)
}

// Result is the outcome of one charge calculation. BaseAmount is kept at
// full precision; rounding to the currency's minor unit happens when the
// invoice fixes the item's final amount.
type Result struct {
	RateType   types.RateType  `json:"rate_type"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Currency   string          `json:"currency"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Breakdown  []ChargeLine    `json:"breakdown,omitempty"`
}

// ChargeLine is one step of a charge breakdown, e.g. a single tier
type ChargeLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// Registry resolves strategies by rate type. It is passed explicitly as a
// dependency rather than held as a package-level singleton so plans and
// invoices stay independently testable.
type Registry struct {
	strategies map[types.RateType]Strategy
}

// NewRegistry builds a registry with the default strategy set.
// dataUnitBytes sizes one billable data unit for volume based pricing.
func NewRegistry(dataUnitBytes int64) *Registry {
	r := &Registry{strategies: make(map[types.RateType]Strategy)}
	r.Register(NewTimeStrategy())
	r.Register(NewDataVolumeStrategy(dataUnitBytes))
	r.Register(NewTieredDataStrategy(dataUnitBytes))
	r.Register(NewFlatRateStrategy())
	return r
}

// Register adds or replaces the strategy for its rate type
func (r *Registry) Register(s Strategy) {
	r.strategies[s.RateType()] = s
}

// Get resolves the strategy for a rate type
func (r *Registry) Get(rateType types.RateType) (Strategy, error) {
	s, ok := r.strategies[rateType]
	if !ok {
		return nil, ierr.NewError("no billing strategy registered").
			WithHintf("No billing strategy is registered for rate type %s", rateType).
			WithReportableDetails(map[string]any{
				"rate_type": rateType,
			}).
			Mark(ierr.ErrNotFound)
	}
	return s, nil
}

// validateRateType is the common pre-flight check shared by all strategies
func validateRateType(r *rate.Rate, want types.RateType) error {
	if r == nil {
		return ierr.NewError("no rate supplied").
			WithHint("A rate is required to calculate charges").
			Mark(ierr.ErrValidation)
	}
	if r.RateType != want {
		return ierr.NewError("rate type does not match strategy").
			WithHintf("Expected a %s rate, got %s", want, r.RateType).
			Mark(ierr.ErrValidation)
	}
	return r.Validate()
}
