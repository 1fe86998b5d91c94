package dto

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/rate"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/validator"
	"github.com/shopspring/decimal"
)

// CreatePlanRequest creates a new billing plan
type CreatePlanRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Currency    string `json:"currency" validate:"required,len=3"`
}

func (r *CreatePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// RateTier is one pricing bracket in an AddRateRequest
type RateTier struct {
	UsageLimit *uint64 `json:"usage_limit"`
	UnitPrice  string  `json:"unit_price" validate:"required"`
}

// AddRateRequest binds a new rate to a plan
type AddRateRequest struct {
	RateType      types.RateType `json:"rate_type" validate:"required"`
	UnitPrice     string         `json:"unit_price"`
	Tiers         []RateTier     `json:"tiers,omitempty"`
	EffectiveDate time.Time      `json:"effective_date" validate:"required"`
	ExpiryDate    *time.Time     `json:"expiry_date,omitempty"`
}

func (r *AddRateRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.RateType.Validate()
}

// ToRate converts the request into a domain rate priced in the plan's currency
func (r *AddRateRequest) ToRate(ctx context.Context, currency string) (*rate.Rate, error) {
	unitPrice := decimal.Zero
	if r.UnitPrice != "" {
		d, err := decimal.NewFromString(r.UnitPrice)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Invalid unit price: %s", r.UnitPrice).
				Mark(ierr.ErrValidation)
		}
		unitPrice = d
	}

	tiers := make([]rate.Tier, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		d, err := decimal.NewFromString(t.UnitPrice)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Invalid tier unit price: %s", t.UnitPrice).
				Mark(ierr.ErrValidation)
		}
		tiers = append(tiers, rate.Tier{UsageLimit: t.UsageLimit, UnitPrice: d})
	}

	var expiry time.Time
	if r.ExpiryDate != nil {
		expiry = *r.ExpiryDate
	}

	return &rate.Rate{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RATE),
		RateType:      r.RateType,
		UnitPrice:     unitPrice,
		Tiers:         tiers,
		Currency:      currency,
		EffectiveDate: r.EffectiveDate,
		ExpiryDate:    expiry,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}, nil
}

// PlanResponse is the API shape of a billing plan
type PlanResponse struct {
	*plan.BillingPlan
}

// ListPlansResponse is the paginated plan listing
type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}
