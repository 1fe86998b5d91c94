package plan

import (
	"context"
	"strings"
	"time"

	"github.com/netbill/netbill/internal/billing"
	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// BillingPlan is the aggregate root for a priced offering. It owns its
// rates and guarantees that at any instant at most one rate per rate type
// is effective. Mutations append domain events to an internal outbox that
// the persistence layer drains transactionally via PopEvents.
type BillingPlan struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Currency    string       `json:"currency"`
	Rates       []*rate.Rate `json:"rates"`

	types.BaseModel

	events []types.DomainEvent
}

// NewBillingPlan creates an active plan and records a creation event
func NewBillingPlan(ctx context.Context, name, description, currency string) (*BillingPlan, error) {
	if name == "" {
		return nil, ierr.NewError("plan has no name").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}
	if currency == "" {
		return nil, ierr.NewError("plan has no currency").
			WithHint("Plan currency is required").
			Mark(ierr.ErrValidation)
	}

	p := &BillingPlan{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_PLAN),
		Name:        name,
		Description: description,
		Currency:    strings.ToLower(currency),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	p.record(types.NewDomainEvent(types.EventPlanCreated, p.ID, map[string]string{
		"name":     p.Name,
		"currency": p.Currency,
	}))
	return p, nil
}

// AddRate binds a rate to the plan. The rate must be valid, carry the
// plan's currency and must not overlap an existing rate of the same type;
// overlaps fail with ErrRateConflict so historical pricing stays unambiguous.
func (p *BillingPlan) AddRate(r *rate.Rate) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Currency != p.Currency {
		return ierr.NewError("rate currency does not match plan").
			WithHintf("Plan is priced in %s, rate in %s", p.Currency, r.Currency).
			WithReportableDetails(map[string]any{
				"plan_currency": p.Currency,
				"rate_currency": r.Currency,
			}).
			MarkAll(ierr.ErrCurrencyMismatch, ierr.ErrValidation)
	}

	for _, existing := range p.Rates {
		if existing.RateType != r.RateType {
			continue
		}
		if existing.OverlapsWith(r) {
			return ierr.NewError("rate window overlaps an existing rate").
				WithHintf("A %s rate is already effective in this window", r.RateType).
				WithReportableDetails(map[string]any{
					"plan_id":   p.ID,
					"rate_type": r.RateType,
					"existing":  existing.ID,
				}).
				MarkAll(ierr.ErrRateConflict, ierr.ErrConsistency)
		}
	}

	r.PlanID = p.ID
	p.Rates = append(p.Rates, r)
	p.record(types.NewDomainEvent(types.EventPlanRateAdded, p.ID, map[string]string{
		"rate_id":   r.ID,
		"rate_type": string(r.RateType),
	}))
	return nil
}

// RateAt resolves the rate of a given type effective at an instant
func (p *BillingPlan) RateAt(rateType types.RateType, at time.Time) (*rate.Rate, error) {
	for _, r := range p.Rates {
		if r.RateType == rateType && r.ContainsTime(at) {
			return r, nil
		}
	}
	return nil, ierr.NewError("no effective rate").
		WithHintf("Plan has no %s rate effective at %s", rateType, at.Format(time.RFC3339)).
		WithReportableDetails(map[string]any{
			"plan_id":   p.ID,
			"rate_type": rateType,
			"at":        at,
		}).
		Mark(ierr.ErrNotFound)
}

// CalculateCharges prices usage against every rate effective at the given
// instant. An inactive plan cannot produce charges.
func (p *BillingPlan) CalculateCharges(registry *billing.Registry, u *usage.UsageData, at time.Time) ([]*billing.Result, error) {
	if p.Status != types.StatusActive {
		return nil, ierr.NewError("plan is not active").
			WithHintf("Plan %s is %s and cannot produce charges", p.ID, p.Status).
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
				"status":  p.Status,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	results := make([]*billing.Result, 0, len(p.Rates))
	for _, r := range p.Rates {
		if !r.ContainsTime(at) {
			continue
		}
		strategy, err := registry.Get(r.RateType)
		if err != nil {
			return nil, err
		}
		result, err := strategy.CalculateCharges(u, r)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if len(results) == 0 {
		return nil, ierr.NewError("no effective rate").
			WithHintf("Plan %s has no rate effective at %s", p.ID, at.Format(time.RFC3339)).
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
				"at":      at,
			}).
			Mark(ierr.ErrNotFound)
	}
	return results, nil
}

// Activate transitions the plan to active. Activating an active plan is a
// no-op and records no event.
func (p *BillingPlan) Activate(ctx context.Context) {
	if p.Status == types.StatusActive {
		return
	}
	p.Status = types.StatusActive
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)
	p.record(types.NewDomainEvent(types.EventPlanActivated, p.ID, nil))
}

// Deactivate transitions the plan to inactive. Deactivating an inactive
// plan is a no-op and records no event.
func (p *BillingPlan) Deactivate(ctx context.Context) {
	if p.Status == types.StatusInactive {
		return
	}
	p.Status = types.StatusInactive
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)
	p.record(types.NewDomainEvent(types.EventPlanDeactivated, p.ID, nil))
}

func (p *BillingPlan) record(e types.DomainEvent) {
	p.events = append(p.events, e)
}

// PopEvents drains and returns the pending domain events
func (p *BillingPlan) PopEvents() []types.DomainEvent {
	events := p.events
	p.events = nil
	return events
}
