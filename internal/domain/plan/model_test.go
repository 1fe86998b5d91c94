package plan

import (
	"context"
	"testing"
	"time"

	"github.com/netbill/netbill/internal/billing"
	"github.com/netbill/netbill/internal/domain/rate"
	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanTestSuite struct {
	suite.Suite
	ctx      context.Context
	registry *billing.Registry
	now      time.Time
}

func TestPlanSuite(t *testing.T) {
	suite.Run(t, new(PlanTestSuite))
}

func (s *PlanTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.registry = billing.NewRegistry(billing.DefaultDataUnitBytes)
	s.now = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
}

func (s *PlanTestSuite) newPlan() *BillingPlan {
	p, err := NewBillingPlan(s.ctx, "starter", "starter plan", "usd")
	s.Require().NoError(err)
	p.PopEvents()
	return p
}

func (s *PlanTestSuite) newTimeRate(hourly string, effective time.Time, expiry time.Time) *rate.Rate {
	return &rate.Rate{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RATE),
		RateType:      types.RateTypeTime,
		UnitPrice:     decimal.RequireFromString(hourly),
		Currency:      "usd",
		EffectiveDate: effective,
		ExpiryDate:    expiry,
		BaseModel:     types.BaseModel{Status: types.StatusActive},
	}
}

func (s *PlanTestSuite) TestNewPlanEmitsCreated() {
	p, err := NewBillingPlan(s.ctx, "starter", "", "USD")
	s.NoError(err)
	s.Equal("usd", p.Currency)
	s.Equal(types.StatusActive, p.Status)

	events := p.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventPlanCreated, events[0].EventName)
	s.Empty(p.PopEvents())
}

func (s *PlanTestSuite) TestNewPlanRequiresName() {
	_, err := NewBillingPlan(s.ctx, "", "", "usd")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanTestSuite) TestAddRate() {
	p := s.newPlan()

	r := s.newTimeRate("12.00", s.now, time.Time{})
	s.NoError(p.AddRate(r))
	s.Equal(p.ID, r.PlanID)

	events := p.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventPlanRateAdded, events[0].EventName)
}

func (s *PlanTestSuite) TestAddRateRejectsOverlap() {
	p := s.newPlan()

	s.NoError(p.AddRate(s.newTimeRate("12.00", s.now, time.Time{})))

	err := p.AddRate(s.newTimeRate("10.00", s.now.AddDate(0, 1, 0), time.Time{}))
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrRateConflict))
	s.True(ierr.IsConsistency(err), "rate window conflict is a consistency violation")
	s.Len(p.Rates, 1)
}

func (s *PlanTestSuite) TestAddRateAllowsAdjacentWindows() {
	p := s.newPlan()

	cutover := s.now.AddDate(0, 1, 0)
	s.NoError(p.AddRate(s.newTimeRate("12.00", s.now, cutover)))
	s.NoError(p.AddRate(s.newTimeRate("10.00", cutover, time.Time{})))
	s.Len(p.Rates, 2)
}

func (s *PlanTestSuite) TestAddRateAllowsDifferentTypesInSameWindow() {
	p := s.newPlan()

	s.NoError(p.AddRate(s.newTimeRate("12.00", s.now, time.Time{})))

	data := &rate.Rate{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RATE),
		RateType:      types.RateTypeDataVolume,
		UnitPrice:     decimal.RequireFromString("0.10"),
		Currency:      "usd",
		EffectiveDate: s.now,
		BaseModel:     types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(p.AddRate(data))
}

func (s *PlanTestSuite) TestAddRateRejectsCurrencyMismatch() {
	p := s.newPlan()

	r := s.newTimeRate("12.00", s.now, time.Time{})
	r.Currency = "eur"
	err := p.AddRate(r)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrCurrencyMismatch))
}

func (s *PlanTestSuite) TestRateAtResolvesEffectiveWindow() {
	p := s.newPlan()

	cutover := s.now.AddDate(0, 1, 0)
	old := s.newTimeRate("12.00", s.now, cutover)
	current := s.newTimeRate("10.00", cutover, time.Time{})
	s.NoError(p.AddRate(old))
	s.NoError(p.AddRate(current))

	got, err := p.RateAt(types.RateTypeTime, s.now.Add(time.Hour))
	s.NoError(err)
	s.Equal(old.ID, got.ID)

	got, err = p.RateAt(types.RateTypeTime, cutover)
	s.NoError(err)
	s.Equal(current.ID, got.ID)

	_, err = p.RateAt(types.RateTypeTime, s.now.AddDate(-1, 0, 0))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PlanTestSuite) TestCalculateCharges() {
	p := s.newPlan()
	s.NoError(p.AddRate(s.newTimeRate("12.00", s.now.AddDate(0, -1, 0), time.Time{})))

	u := &usage.UsageData{
		UserID:         "user-1",
		SessionSeconds: 125,
		Period:         types.NewMonthlyBillingPeriod(s.now),
	}
	results, err := p.CalculateCharges(s.registry, u, s.now)
	s.NoError(err)
	s.Require().Len(results, 1)
	s.True(results[0].BaseAmount.Equal(decimal.RequireFromString("0.60")))
}

func (s *PlanTestSuite) TestCalculateChargesWithoutEffectiveRate() {
	p := s.newPlan()
	s.NoError(p.AddRate(s.newTimeRate("12.00", s.now.AddDate(0, 1, 0), time.Time{})))

	u := &usage.UsageData{
		UserID:         "user-1",
		SessionSeconds: 125,
		Period:         types.NewMonthlyBillingPeriod(s.now),
	}
	// the only rate becomes effective next month
	_, err := p.CalculateCharges(s.registry, u, s.now)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PlanTestSuite) TestCalculateChargesRejectsInactivePlan() {
	p := s.newPlan()
	s.NoError(p.AddRate(s.newTimeRate("12.00", s.now.AddDate(0, -1, 0), time.Time{})))
	p.Deactivate(s.ctx)

	u := &usage.UsageData{
		UserID:         "user-1",
		SessionSeconds: 125,
		Period:         types.NewMonthlyBillingPeriod(s.now),
	}
	_, err := p.CalculateCharges(s.registry, u, s.now)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidOperation))
}

func (s *PlanTestSuite) TestActivateDeactivateAreIdempotent() {
	p := s.newPlan()

	p.Activate(s.ctx)
	s.Empty(p.PopEvents(), "activating an active plan records nothing")

	p.Deactivate(s.ctx)
	s.Equal(types.StatusInactive, p.Status)
	events := p.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventPlanDeactivated, events[0].EventName)

	p.Deactivate(s.ctx)
	s.Empty(p.PopEvents(), "deactivating an inactive plan records nothing")

	p.Activate(s.ctx)
	events = p.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventPlanActivated, events[0].EventName)
}
