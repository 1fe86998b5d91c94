package service

import (
	"time"

	"github.com/netbill/netbill/internal/api/dto"
	"github.com/netbill/netbill/internal/billing"
	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/domain/tax"
	"github.com/netbill/netbill/internal/domain/usage"
	"github.com/netbill/netbill/internal/idempotency"
	"github.com/netbill/netbill/internal/testutil"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// ServiceTestSuite wires the services against in-memory stores
type ServiceTestSuite struct {
	testutil.BaseServiceTestSuite

	params         ServiceParams
	planService    PlanService
	invoiceService InvoiceService
	paymentService PaymentService
	runService     BillingRunService
}

func (s *ServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	taxCalc, err := tax.NewPercentageCalculator(decimal.NewFromInt(10))
	s.Require().NoError(err)

	s.params = ServiceParams{
		Logger:        s.GetLogger(),
		Config:        s.GetConfig(),
		DB:            testutil.NewMockPostgresClient(),
		PlanRepo:      stores.PlanRepo,
		InvoiceRepo:   stores.InvoiceRepo,
		PaymentRepo:   stores.PaymentRepo,
		UsageRepo:     stores.UsageRepo,
		Registry:      billing.NewRegistry(s.GetConfig().Billing.DataUnitBytes),
		TaxCalculator: taxCalc,
		IdempGen:      idempotency.NewGenerator(),
		Cache:         cache.NewInMemoryCache(),
	}
	s.planService = NewPlanService(s.params)
	s.invoiceService = NewInvoiceService(s.params)
	s.paymentService = NewPaymentService(s.params)
	s.runService = NewBillingRunService(s.params, s.invoiceService)
}

// setupPlan creates an active plan with a time rate of 12.00/hour and a
// data volume rate of 0.10/unit, both effective since 2025
func (s *ServiceTestSuite) setupPlan() string {
	resp, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:     "metered",
		Currency: "usd",
	})
	s.Require().NoError(err)

	effective := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.planService.AddRate(s.GetContext(), resp.ID, &dto.AddRateRequest{
		RateType:      types.RateTypeTime,
		UnitPrice:     "12.00",
		EffectiveDate: effective,
	})
	s.Require().NoError(err)

	_, err = s.planService.AddRate(s.GetContext(), resp.ID, &dto.AddRateRequest{
		RateType:      types.RateTypeDataVolume,
		UnitPrice:     "0.10",
		EffectiveDate: effective,
	})
	s.Require().NoError(err)

	return resp.ID
}

// money parses a usd amount for assertions
func (s *ServiceTestSuite) money(amount string) types.Money {
	m, err := types.NewMoneyFromString(amount, "usd")
	s.Require().NoError(err)
	return m
}

// seedUsage registers 125s and 1.5 MiB for a user in 2026-01
func (s *ServiceTestSuite) seedUsage(userID string) types.BillingPeriod {
	period := types.NewMonthlyBillingPeriod(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	s.GetStores().UsageRepo.Seed(&usage.UsageData{
		UserID:         userID,
		SessionSeconds: 125,
		TotalBytes:     billing.DefaultDataUnitBytes + billing.DefaultDataUnitBytes/2,
		Period:         period,
	})
	return period
}
