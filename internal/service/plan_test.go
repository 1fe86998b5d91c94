package service

import (
	"testing"
	"time"

	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/stretchr/testify/suite"
)

type PlanServiceTestSuite struct {
	ServiceTestSuite
}

func TestPlanServiceSuite(t *testing.T) {
	suite.Run(t, new(PlanServiceTestSuite))
}

func (s *PlanServiceTestSuite) TestCreatePlan() {
	resp, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:        "starter",
		Description: "entry level",
		Currency:    "USD",
	})
	s.Require().NoError(err)
	s.Equal("usd", resp.Currency)
	s.Equal(types.StatusActive, resp.Status)

	events := s.GetStores().PlanRepo.Events()
	s.Require().Len(events, 1)
	s.Equal(types.EventPlanCreated, events[0].EventName)
}

func (s *PlanServiceTestSuite) TestCreatePlanValidation() {
	_, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Currency: "usd",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:     "starter",
		Currency: "dollars",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceTestSuite) TestAddRateValidatesConfiguration() {
	resp, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:     "starter",
		Currency: "usd",
	})
	s.Require().NoError(err)

	// a tiered rate with no tiers fails the strategy's pre-flight check
	_, err = s.planService.AddRate(s.GetContext(), resp.ID, &dto.AddRateRequest{
		RateType:      types.RateTypeTieredData,
		EffectiveDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceTestSuite) TestAddTieredRate() {
	resp, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:     "tiered",
		Currency: "usd",
	})
	s.Require().NoError(err)

	ten := uint64(10)
	_, err = s.planService.AddRate(s.GetContext(), resp.ID, &dto.AddRateRequest{
		RateType:      types.RateTypeTieredData,
		EffectiveDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Tiers: []dto.RateTier{
			{UsageLimit: &ten, UnitPrice: "0.10"},
			{UnitPrice: "0.05"},
		},
	})
	s.Require().NoError(err)

	got, err := s.planService.GetPlan(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Rates, 1)
	s.Len(got.Rates[0].Tiers, 2)
}

func (s *PlanServiceTestSuite) TestAddRateConflict() {
	planID := s.setupPlan()

	_, err := s.planService.AddRate(s.GetContext(), planID, &dto.AddRateRequest{
		RateType:      types.RateTypeTime,
		UnitPrice:     "9.00",
		EffectiveDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrRateConflict))
}

func (s *PlanServiceTestSuite) TestDeactivateThenActivate() {
	planID := s.setupPlan()

	s.NoError(s.planService.DeactivatePlan(s.GetContext(), planID))
	got, err := s.planService.GetPlan(s.GetContext(), planID)
	s.Require().NoError(err)
	s.Equal(types.StatusInactive, got.Status)

	s.NoError(s.planService.ActivatePlan(s.GetContext(), planID))
	got, err = s.planService.GetPlan(s.GetContext(), planID)
	s.Require().NoError(err)
	s.Equal(types.StatusActive, got.Status)
}

func (s *PlanServiceTestSuite) TestListActivePlans() {
	first := s.setupPlan()
	second := s.setupPlan()
	_ = first

	s.Require().NoError(s.planService.DeactivatePlan(s.GetContext(), second))

	filter := types.NewPlanFilter()
	filter.ActiveOnly = true
	resp, err := s.planService.ListPlans(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, resp.Total)
}
