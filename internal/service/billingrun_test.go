package service

import (
	"fmt"
	"testing"

	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/stretchr/testify/suite"
)

type BillingRunServiceTestSuite struct {
	ServiceTestSuite
}

func TestBillingRunServiceSuite(t *testing.T) {
	suite.Run(t, new(BillingRunServiceTestSuite))
}

func (s *BillingRunServiceTestSuite) TestRunBillsAllUsers() {
	planID := s.setupPlan()

	userIDs := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		userID := fmt.Sprintf("user-%d", i)
		s.seedUsage(userID)
		userIDs = append(userIDs, userID)
	}

	resp, err := s.runService.Run(s.GetContext(), &dto.BillingRunRequest{
		PlanID:  planID,
		Period:  "2026-01",
		UserIDs: userIDs,
	})
	s.Require().NoError(err)
	s.Equal(10, resp.Succeeded)
	s.Equal(0, resp.Failed)
	s.Len(resp.Items, 10)

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewNoLimitInvoiceFilter())
	s.NoError(err)
	s.Equal(10, count)
}

func (s *BillingRunServiceTestSuite) TestRunCollectsPerUserFailures() {
	planID := s.setupPlan()
	s.seedUsage("user-ok")
	// user-missing has no usage record

	resp, err := s.runService.Run(s.GetContext(), &dto.BillingRunRequest{
		PlanID:  planID,
		Period:  "2026-01",
		UserIDs: []string{"user-ok", "user-missing"},
	})
	s.Require().NoError(err)
	s.Equal(1, resp.Succeeded)
	s.Equal(1, resp.Failed)

	for _, item := range resp.Items {
		if item.UserID == "user-ok" {
			s.NotEmpty(item.InvoiceID)
			s.Empty(item.Error)
		} else {
			s.Empty(item.InvoiceID)
			s.NotEmpty(item.Error)
		}
	}
}

func (s *BillingRunServiceTestSuite) TestRunIsRepeatable() {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	req := &dto.BillingRunRequest{
		PlanID:  planID,
		Period:  "2026-01",
		UserIDs: []string{"user-1"},
	}

	first, err := s.runService.Run(s.GetContext(), req)
	s.Require().NoError(err)
	s.Equal(1, first.Succeeded)

	second, err := s.runService.Run(s.GetContext(), req)
	s.Require().NoError(err)
	s.Equal(1, second.Succeeded, "a re-run reuses the existing invoices")

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewNoLimitInvoiceFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *BillingRunServiceTestSuite) TestRunRequiresUsers() {
	_, err := s.runService.Run(s.GetContext(), &dto.BillingRunRequest{
		PlanID: "plan-1",
		Period: "2026-01",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
