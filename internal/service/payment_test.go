package service

import (
	"testing"

	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceTestSuite struct {
	ServiceTestSuite
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

// generateInvoice produces a sent invoice totalling 0.88 usd
func (s *PaymentServiceTestSuite) generateInvoice() string {
	planID := s.setupPlan()
	s.seedUsage("user-1")

	resp, err := s.invoiceService.GenerateInvoice(s.GetContext(), &dto.GenerateInvoiceRequest{
		UserID: "user-1",
		PlanID: planID,
		Period: "2026-01",
	})
	s.Require().NoError(err)
	return resp.ID
}

func (s *PaymentServiceTestSuite) TestRecordPartialThenFullPayment() {
	invoiceID := s.generateInvoice()

	first, err := s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:         invoiceID,
		Amount:            "0.50",
		Currency:          "usd",
		PaymentMethodType: types.PaymentMethodTypeCard,
	})
	s.Require().NoError(err)
	s.NotEmpty(first.TransactionRef)

	inv, err := s.invoiceService.GetInvoice(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPartiallyPaid, inv.InvoiceStatus)
	s.True(inv.BalanceDue.Equal(s.money("0.38")), "balance is %s", inv.BalanceDue)

	_, err = s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:         invoiceID,
		Amount:            "0.38",
		Currency:          "usd",
		PaymentMethodType: types.PaymentMethodTypeBankTransfer,
	})
	s.Require().NoError(err)

	inv, err = s.invoiceService.GetInvoice(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.True(inv.BalanceDue.IsZero())
}

func (s *PaymentServiceTestSuite) TestOverpaymentIsRejected() {
	invoiceID := s.generateInvoice()

	_, err := s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:         invoiceID,
		Amount:            "1.00",
		Currency:          "usd",
		PaymentMethodType: types.PaymentMethodTypeCard,
	})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrOverpayment))

	// nothing was recorded
	payments, err := s.paymentService.ListPayments(s.GetContext(), invoiceID)
	s.NoError(err)
	s.Equal(0, payments.Total)
}

func (s *PaymentServiceTestSuite) TestRetryWithSameIdempotencyKey() {
	invoiceID := s.generateInvoice()

	req := &dto.RecordPaymentRequest{
		InvoiceID:         invoiceID,
		Amount:            "0.50",
		Currency:          "usd",
		PaymentMethodType: types.PaymentMethodTypeCard,
		IdempotencyKey:    "retry-key-1",
	}

	first, err := s.paymentService.RecordPayment(s.GetContext(), req)
	s.Require().NoError(err)

	second, err := s.paymentService.RecordPayment(s.GetContext(), req)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID, "retry returns the original payment")

	inv, err := s.invoiceService.GetInvoice(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.True(inv.AmountPaid.Equal(s.money("0.50")), "the retry charged nothing")
}

func (s *PaymentServiceTestSuite) TestPaymentCurrencyMismatch() {
	invoiceID := s.generateInvoice()

	_, err := s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:         invoiceID,
		Amount:            "0.50",
		Currency:          "eur",
		PaymentMethodType: types.PaymentMethodTypeCard,
	})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrCurrencyMismatch))
}

func (s *PaymentServiceTestSuite) TestConcurrentPaymentsSerializeOnVersion() {
	invoiceID := s.generateInvoice()
	repo := s.GetStores().InvoiceRepo

	// two payers load the invoice at the same version
	first, err := repo.Get(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	second, err := repo.Get(s.GetContext(), invoiceID)
	s.Require().NoError(err)

	s.Require().NoError(first.RecordPayment(s.GetContext(), s.money("0.50")))
	s.Require().NoError(repo.Update(s.GetContext(), first))

	// the second payer saves against a stale version and loses
	s.Require().NoError(second.RecordPayment(s.GetContext(), s.money("0.30")))
	err = repo.Update(s.GetContext(), second)
	s.Error(err)
	s.True(ierr.IsVersionConflict(err))

	// the losing payment never reached the store
	stored, err := repo.Get(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.True(stored.AmountPaid.Equal(s.money("0.50")), "amount paid is %s", stored.AmountPaid)
	s.Equal(types.InvoiceStatusPartiallyPaid, stored.InvoiceStatus)

	// a retry against the reloaded invoice applies cleanly
	_, err = s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:         invoiceID,
		Amount:            "0.30",
		Currency:          "usd",
		PaymentMethodType: types.PaymentMethodTypeCard,
	})
	s.NoError(err)
}

func (s *PaymentServiceTestSuite) TestListPayments() {
	invoiceID := s.generateInvoice()

	for _, amount := range []string{"0.30", "0.20"} {
		_, err := s.paymentService.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
			InvoiceID:         invoiceID,
			Amount:            amount,
			Currency:          "usd",
			PaymentMethodType: types.PaymentMethodTypeOffline,
		})
		s.Require().NoError(err)
	}

	payments, err := s.paymentService.ListPayments(s.GetContext(), invoiceID)
	s.NoError(err)
	s.Equal(2, payments.Total)
}
