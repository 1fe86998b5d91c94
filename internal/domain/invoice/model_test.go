package invoice

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/netbill/netbill/internal/billing"
	"github.com/netbill/netbill/internal/domain/tax"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	period types.BillingPeriod
}

func TestInvoiceSuite(t *testing.T) {
	suite.Run(t, new(InvoiceTestSuite))
}

func (s *InvoiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.period = types.NewMonthlyBillingPeriod(time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC))
}

func (s *InvoiceTestSuite) newDraft() *Invoice {
	inv, err := NewInvoice(s.ctx, "user-1", "usd", s.period)
	s.Require().NoError(err)
	inv.PopEvents()
	return inv
}

func (s *InvoiceTestSuite) charge(amount string) *billing.Result {
	return &billing.Result{
		BaseAmount: decimal.RequireFromString(amount),
		Currency:   "usd",
		Quantity:   decimal.NewFromInt(1),
		UnitPrice:  decimal.RequireFromString(amount),
	}
}

func (s *InvoiceTestSuite) usd(amount string) types.Money {
	m, err := types.NewMoneyFromString(amount, "usd")
	s.Require().NoError(err)
	return m
}

// draftWithItems builds the common fixture: time charge 0.60, data charge 0.20
func (s *InvoiceTestSuite) draftWithItems() *Invoice {
	inv := s.newDraft()
	s.Require().NoError(inv.AddBillingItem(s.ctx, types.RateTypeTime, s.charge("0.60")))
	s.Require().NoError(inv.AddBillingItem(s.ctx, types.RateTypeDataVolume, s.charge("0.20")))
	inv.PopEvents()
	return inv
}

func (s *InvoiceTestSuite) TestNewInvoiceStartsAsDraft() {
	inv, err := NewInvoice(s.ctx, "user-1", "USD", s.period)
	s.NoError(err)
	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
	s.Equal("usd", inv.Currency)
	s.True(inv.Total.IsZero())
	s.NotEmpty(inv.InvoiceNumber)

	events := inv.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventInvoiceDrafted, events[0].EventName)
}

func (s *InvoiceTestSuite) TestAddBillingItemAccumulatesTotals() {
	inv := s.newDraft()

	s.NoError(inv.AddBillingItem(s.ctx, types.RateTypeTime, s.charge("0.60")))
	s.NoError(inv.AddBillingItem(s.ctx, types.RateTypeDataVolume, s.charge("0.20")))

	s.Len(inv.LineItems, 2)
	s.True(inv.Subtotal.Equal(s.usd("0.80")), "subtotal is %s", inv.Subtotal)
	s.True(inv.Total.Equal(s.usd("0.80")))
	s.NoError(inv.Validate())
}

func (s *InvoiceTestSuite) TestAddBillingItemRoundsAtItemLevel() {
	inv := s.newDraft()

	// 0.604999 fixes to 0.60 in usd, the raw amount never reappears
	s.NoError(inv.AddBillingItem(s.ctx, types.RateTypeTime, s.charge("0.604999")))
	s.True(inv.LineItems[0].Amount.Equal(s.usd("0.60")))
	s.True(inv.Subtotal.Equal(s.usd("0.60")))
}

func (s *InvoiceTestSuite) TestAddBillingItemRejectsCurrencyMismatch() {
	inv := s.newDraft()

	c := s.charge("0.60")
	c.Currency = "eur"
	err := inv.AddBillingItem(s.ctx, types.RateTypeTime, c)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrCurrencyMismatch))
}

func (s *InvoiceTestSuite) TestApplyTaxIsIdempotent() {
	inv := s.draftWithItems()

	calc, err := tax.NewPercentageCalculator(decimal.NewFromInt(10))
	s.Require().NoError(err)

	s.NoError(inv.ApplyTax(s.ctx, calc, tax.Context{}))
	s.True(inv.TaxAmount.Equal(s.usd("0.08")), "tax is %s", inv.TaxAmount)
	s.True(inv.Total.Equal(s.usd("0.88")))

	// re-applying with the same inputs replaces, never stacks
	s.NoError(inv.ApplyTax(s.ctx, calc, tax.Context{}))
	s.True(inv.TaxAmount.Equal(s.usd("0.08")))
	s.True(inv.Total.Equal(s.usd("0.88")))
	s.NoError(inv.Validate())
}

func (s *InvoiceTestSuite) TestApplyNoopTax() {
	inv := s.draftWithItems()

	s.NoError(inv.ApplyTax(s.ctx, tax.NewNoopCalculator(), tax.Context{}))
	s.True(inv.TaxAmount.IsZero())
	s.True(inv.Total.Equal(s.usd("0.80")))
}

func (s *InvoiceTestSuite) TestApplyTaxRecordsJurisdiction() {
	inv := s.draftWithItems()

	calc, err := tax.NewPercentageCalculator(decimal.NewFromInt(10))
	s.Require().NoError(err)

	taxCtx := tax.Context{Jurisdiction: "DE"}
	s.NoError(inv.ApplyTax(s.ctx, calc, taxCtx))
	s.True(inv.TaxAmount.Equal(s.usd("0.08")))

	events := inv.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventInvoiceTaxApplied, events[0].EventName)

	var payload map[string]string
	s.Require().NoError(json.Unmarshal(events[0].Payload, &payload))
	s.Equal("DE", payload["jurisdiction"])
}

func (s *InvoiceTestSuite) TestMarkAsSentRejectsEmptyInvoice() {
	inv := s.newDraft()

	err := inv.MarkAsSent(s.ctx)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrEmptyInvoice))
	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
}

func (s *InvoiceTestSuite) TestMarkAsSentFreezesItems() {
	inv := s.draftWithItems()

	s.NoError(inv.MarkAsSent(s.ctx))
	s.Equal(types.InvoiceStatusSent, inv.InvoiceStatus)
	s.NotNil(inv.SentAt)

	err := inv.AddBillingItem(s.ctx, types.RateTypeTime, s.charge("1.00"))
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvoiceNotEditable))

	err = inv.ApplyTax(s.ctx, tax.NewNoopCalculator(), tax.Context{})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvoiceNotEditable))
}

func (s *InvoiceTestSuite) TestPartialThenFullPayment() {
	inv := s.draftWithItems()
	s.Require().NoError(inv.MarkAsSent(s.ctx))
	inv.PopEvents()

	s.NoError(inv.RecordPayment(s.ctx, s.usd("0.50")))
	s.Equal(types.InvoiceStatusPartiallyPaid, inv.InvoiceStatus)
	s.True(inv.BalanceDue().Equal(s.usd("0.30")), "balance is %s", inv.BalanceDue())

	events := inv.PopEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventInvoicePaymentRecorded, events[0].EventName)

	s.NoError(inv.RecordPayment(s.ctx, s.usd("0.30")))
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.True(inv.BalanceDue().IsZero())
	s.NotNil(inv.PaidAt)

	events = inv.PopEvents()
	s.Require().Len(events, 2)
	s.Equal(types.EventInvoicePaymentRecorded, events[0].EventName)
	s.Equal(types.EventInvoicePaid, events[1].EventName)
}

func (s *InvoiceTestSuite) TestExactPaymentPaysInFull() {
	inv := s.draftWithItems()
	s.Require().NoError(inv.MarkAsSent(s.ctx))

	s.NoError(inv.RecordPayment(s.ctx, s.usd("0.80")))
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.NoError(inv.Validate())
}

func (s *InvoiceTestSuite) TestOverpaymentIsRejected() {
	inv := s.draftWithItems()
	s.Require().NoError(inv.MarkAsSent(s.ctx))

	err := inv.RecordPayment(s.ctx, s.usd("1.00"))
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrOverpayment))
	s.True(ierr.IsConsistency(err), "overpayment is a consistency violation")
	s.Equal(types.InvoiceStatusSent, inv.InvoiceStatus, "rejected payment leaves state untouched")
	s.True(inv.AmountPaid.IsZero())

	// overpaying the remainder after a partial payment fails the same way
	s.NoError(inv.RecordPayment(s.ctx, s.usd("0.50")))
	err = inv.RecordPayment(s.ctx, s.usd("0.31"))
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrOverpayment))
	s.True(inv.AmountPaid.Equal(s.usd("0.50")))
}

func (s *InvoiceTestSuite) TestPaymentOnDraftIsRejected() {
	inv := s.draftWithItems()

	err := inv.RecordPayment(s.ctx, s.usd("0.50"))
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidOperation))
}

func (s *InvoiceTestSuite) TestPaymentCurrencyMismatch() {
	inv := s.draftWithItems()
	s.Require().NoError(inv.MarkAsSent(s.ctx))

	eur, err := types.NewMoneyFromString("0.50", "eur")
	s.Require().NoError(err)
	err = inv.RecordPayment(s.ctx, eur)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrCurrencyMismatch))
}

func (s *InvoiceTestSuite) TestVoidFromDraftAndSent() {
	draft := s.draftWithItems()
	s.NoError(draft.Void(s.ctx, "duplicate billing"))
	s.Equal(types.InvoiceStatusVoided, draft.InvoiceStatus)
	s.Equal("duplicate billing", draft.VoidReason)
	s.NotNil(draft.VoidedAt)

	sent := s.draftWithItems()
	s.Require().NoError(sent.MarkAsSent(s.ctx))
	s.NoError(sent.Void(s.ctx, "customer dispute"))
	s.Equal(types.InvoiceStatusVoided, sent.InvoiceStatus)
}

func (s *InvoiceTestSuite) TestVoidKeepsRecordedPayments() {
	inv := s.draftWithItems()
	s.Require().NoError(inv.MarkAsSent(s.ctx))
	s.Require().NoError(inv.RecordPayment(s.ctx, s.usd("0.50")))

	s.NoError(inv.Void(s.ctx, "service outage credit"))
	s.True(inv.AmountPaid.Equal(s.usd("0.50")), "payments stay on file after void")
}

func (s *InvoiceTestSuite) TestPaidAndVoidedAreTerminal() {
	paid := s.draftWithItems()
	s.Require().NoError(paid.MarkAsSent(s.ctx))
	s.Require().NoError(paid.RecordPayment(s.ctx, s.usd("0.80")))

	s.Error(paid.Void(s.ctx, "too late"))
	s.Error(paid.MarkAsSent(s.ctx))

	voided := s.draftWithItems()
	s.Require().NoError(voided.Void(s.ctx, "duplicate billing"))
	s.Error(voided.Void(s.ctx, "again"))
	s.Error(voided.MarkAsSent(s.ctx))
}
