package service

import (
	"testing"
	"time"

	"github.com/netbill/netbill/internal/api/dto"
	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceTestSuite struct {
	ServiceTestSuite
}

func TestInvoiceServiceSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}

func (s *InvoiceServiceTestSuite) TestGenerateInvoice() {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	resp, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "user-1",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Require().NoError(err)

	// time: 125s at 12.00/h -> 0.60; data: 1.5 MiB at 0.10/unit -> 0.20
	s.Len(resp.LineItems, 2)
	s.True(resp.Subtotal.Equal(s.money("0.80")), "subtotal is %s", resp.Subtotal)
	// 10% tax on 0.80
	s.True(resp.TaxAmount.Equal(s.money("0.08")))
	s.True(resp.Total.Equal(s.money("0.88")))
	s.Equal(types.InvoiceStatusSent, resp.InvoiceStatus)
	s.True(resp.BalanceDue.Equal(s.money("0.88")))
}

func (s *InvoiceServiceTestSuite) TestGenerateInvoiceIsIdempotent() {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	req := &dto.GenerateInvoiceRequest{UserID: "user-1", PlanID: planID, Period: "2026-01"}

	first, err := s.invoiceService.GenerateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	second, err := s.invoiceService.GenerateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID, "re-running a period returns the same invoice")

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewNoLimitInvoiceFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *InvoiceServiceTestSuite) TestGenerateInvoiceZeroUsage() {
	planID := s.setupPlan()
	period := types.NewMonthlyBillingPeriod(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	s.GetStores().UsageRepo.Seed(&usage.UsageData{
		UserID: "idle-user",
		Period: period,
	})

	resp, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "idle-user",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Require().NoError(err)
	s.True(resp.Total.IsZero(), "zero usage on metered rates bills nothing")
	s.Equal(types.InvoiceStatusSent, resp.InvoiceStatus)
}

func (s *InvoiceServiceTestSuite) TestGenerateInvoiceUnknownUsage() {
	planID := s.setupPlan()

	_, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "ghost",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceTestSuite) TestGenerateInvoiceInvalidPeriod() {
	_, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "user-1",
		PlanID: "plan-x",
		Period: "January 2026",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceTestSuite) TestGenerateInvoiceDrainsEvents() {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	_, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "user-1",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Require().NoError(err)

	names := make([]string, 0)
	for _, e := range s.GetStores().InvoiceRepo.Events() {
		names = append(names, e.EventName)
	}
	s.Equal([]string{
		types.EventInvoiceDrafted,
		types.EventInvoiceItemAdded,
		types.EventInvoiceItemAdded,
		types.EventInvoiceTaxApplied,
		types.EventInvoiceSent,
	}, names)
}

func (s *InvoiceServiceTestSuite) TestVoidInvoice() {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	resp, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "user-1",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Require().NoError(err)

	voided, err := s.invoiceService.VoidInvoice(s.GetContext(), resp.ID, "duplicate billing")
	s.NoError(err)
	s.Equal(types.InvoiceStatusVoided, voided.InvoiceStatus)
	s.Equal("duplicate billing", voided.VoidReason)

	// voiding twice is an illegal transition
	_, err = s.invoiceService.VoidInvoice(s.GetContext(), resp.ID, "again")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidOperation))
}

func (s *InvoiceServiceTestSuite) TestGetUserBalance() {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	resp, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "user-1",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Require().NoError(err)

	// sent invoice of 0.88 is fully outstanding
	balance, err := s.invoiceService.GetUserBalance(s.GetContext(), "user-1")
	s.Require().NoError(err)
	s.Require().Len(balance.Balances, 1)
	s.True(balance.Balances[0].Equal(s.money("0.88")))

	_, err = s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:         resp.ID,
		Amount:            "0.50",
		Currency:          "usd",
		PaymentMethodType: types.PaymentMethodTypeCard,
	})
	s.Require().NoError(err)

	balance, err = s.invoiceService.GetUserBalance(s.GetContext(), "user-1")
	s.Require().NoError(err)
	s.Require().Len(balance.Balances, 1)
	s.True(balance.Balances[0].Equal(s.money("0.38")))

	// voided invoices drop out of the balance
	_, err = s.invoiceService.VoidInvoice(s.GetContext(), resp.ID, "written off")
	s.Require().NoError(err)

	balance, err = s.invoiceService.GetUserBalance(s.GetContext(), "user-1")
	s.Require().NoError(err)
	s.Empty(balance.Balances)
}

func (s *InvoiceServiceTestSuite) TestListInvoicesByUser() {
	planID := s.setupPlan()
	s.seedUsage("user-1")
	s.seedUsage("user-2")

	for _, userID := range []string{"user-1", "user-2"} {
		_, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
			UserID: userID,
			PlanID: planID,
			Period: "2026-01",
		})
		s.Require().NoError(err)
	}

	filter := types.NewInvoiceFilter()
	filter.UserID = "user-1"
	resp, err := s.invoiceService.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Require().Len(resp.Items, 1)
	s.Equal("user-1", resp.Items[0].UserID)
}
