package invoice

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/billing"
	"github.com/netbill/netbill/internal/domain/tax"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// Invoice is the aggregate root for a bill issued to a user over one
// billing period. It enforces the forward-only status machine and the
// monetary invariants: Total = Subtotal + TaxAmount, AmountPaid never
// exceeds Total, and every amount carries the invoice currency.
//
// Version backs the optimistic concurrency check in the persistence
// layer; concurrent mutators of the same invoice lose with
// ErrVersionConflict instead of silently clobbering each other.
type Invoice struct {
	ID            string              `json:"id" db:"id"`
	InvoiceNumber string              `json:"invoice_number" db:"invoice_number"`
	UserID        string              `json:"user_id" db:"user_id"`
	Currency      string              `json:"currency" db:"currency"`
	Period        types.BillingPeriod `json:"period"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status" db:"invoice_status"`
	LineItems     []*LineItem         `json:"line_items"`
	Subtotal      types.Money         `json:"subtotal"`
	TaxAmount     types.Money         `json:"tax_amount"`
	Total         types.Money         `json:"total"`
	AmountPaid    types.Money         `json:"amount_paid"`
	TaxName       string              `json:"tax_name,omitempty" db:"tax_name"`
	VoidReason    string              `json:"void_reason,omitempty" db:"void_reason"`
	SentAt        *time.Time          `json:"sent_at,omitempty" db:"sent_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty" db:"paid_at"`
	VoidedAt      *time.Time          `json:"voided_at,omitempty" db:"voided_at"`
	Version       int                 `json:"version" db:"version"`

	types.BaseModel

	events []types.DomainEvent
}

// NewInvoice drafts an empty invoice for a user over a billing period
func NewInvoice(ctx context.Context, userID, currency string, period types.BillingPeriod) (*Invoice, error) {
	if userID == "" {
		return nil, ierr.NewError("invoice has no user").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if currency == "" {
		return nil, ierr.NewError("invoice has no currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	zero := types.ZeroMoney(currency)
	inv := &Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		UserID:        userID,
		Currency:      zero.Currency,
		Period:        period,
		InvoiceStatus: types.InvoiceStatusDraft,
		Subtotal:      zero,
		TaxAmount:     zero,
		Total:         zero,
		AmountPaid:    zero,
		Version:       1,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	inv.record(types.NewDomainEvent(types.EventInvoiceDrafted, inv.ID, map[string]string{
		"user_id":  inv.UserID,
		"currency": inv.Currency,
		"period":   inv.Period.Label(),
	}))
	return inv, nil
}

// AddBillingItem appends a charge to a draft invoice. The charge amount is
// rounded to the currency's minor unit here and never again; totals are
// recomputed from the fixed item amounts.
func (inv *Invoice) AddBillingItem(ctx context.Context, rateType types.RateType, result *billing.Result) error {
	if err := inv.ensureEditable(); err != nil {
		return err
	}

	amount := types.NewMoney(result.BaseAmount, result.Currency).Round()
	if amount.Currency != inv.Currency {
		return ierr.NewError("charge currency does not match invoice").
			WithHintf("Invoice is in %s, charge in %s", inv.Currency, amount.Currency).
			WithReportableDetails(map[string]any{
				"invoice_currency": inv.Currency,
				"charge_currency":  amount.Currency,
			}).
			MarkAll(ierr.ErrCurrencyMismatch, ierr.ErrConsistency)
	}

	description := string(rateType)
	if len(result.Breakdown) == 1 {
		description = result.Breakdown[0].Description
	}
	item := &LineItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		InvoiceID:   inv.ID,
		Description: description,
		RateType:    rateType,
		Quantity:    result.Quantity,
		UnitPrice:   result.UnitPrice,
		Amount:      amount,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := item.Validate(); err != nil {
		return err
	}

	inv.LineItems = append(inv.LineItems, item)
	if err := inv.recalculateTotals(); err != nil {
		return err
	}

	inv.touch(ctx)
	inv.record(types.NewDomainEvent(types.EventInvoiceItemAdded, inv.ID, map[string]string{
		"line_item_id": item.ID,
		"rate_type":    string(rateType),
		"amount":       amount.String(),
	}))
	return nil
}

// ApplyTax computes tax on the current subtotal and fixes it on the
// invoice. Re-applying replaces the previous tax amount instead of
// stacking, so the operation is idempotent for a given calculator and
// tax context.
func (inv *Invoice) ApplyTax(ctx context.Context, calc tax.Calculator, taxCtx tax.Context) error {
	if err := inv.ensureEditable(); err != nil {
		return err
	}

	taxAmount, err := calc.Calculate(inv.Subtotal, taxCtx)
	if err != nil {
		return err
	}
	rounded := taxAmount.Round()
	if rounded.Currency != inv.Currency {
		return ierr.NewError("tax currency does not match invoice").
			WithHintf("Invoice is in %s, tax in %s", inv.Currency, rounded.Currency).
			MarkAll(ierr.ErrCurrencyMismatch, ierr.ErrConsistency)
	}

	inv.TaxAmount = rounded
	inv.TaxName = calc.Name()
	if err := inv.recalculateTotals(); err != nil {
		return err
	}

	inv.touch(ctx)
	payload := map[string]string{
		"tax_name":   inv.TaxName,
		"tax_amount": inv.TaxAmount.String(),
	}
	if taxCtx.Jurisdiction != "" {
		payload["jurisdiction"] = taxCtx.Jurisdiction
	}
	inv.record(types.NewDomainEvent(types.EventInvoiceTaxApplied, inv.ID, payload))
	return nil
}

// MarkAsSent freezes the invoice's items and opens it for payments.
// An invoice with no line items cannot be sent.
func (inv *Invoice) MarkAsSent(ctx context.Context) error {
	if len(inv.LineItems) == 0 {
		return ierr.NewError("invoice has no line items").
			WithHint("An empty invoice cannot be sent").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrEmptyInvoice)
	}
	if err := inv.transitionTo(types.InvoiceStatusSent); err != nil {
		return err
	}

	now := time.Now().UTC()
	inv.SentAt = &now
	inv.touch(ctx)
	inv.record(types.NewDomainEvent(types.EventInvoiceSent, inv.ID, map[string]string{
		"total": inv.Total.String(),
	}))
	return nil
}

// RecordPayment applies a settlement to a sent or partially paid invoice.
// Paying more than the outstanding balance fails with ErrOverpayment; the
// caller must correct the amount, the invoice never holds credit.
func (inv *Invoice) RecordPayment(ctx context.Context, amount types.Money) error {
	if !amount.IsPositive() {
		return ierr.NewError("payment amount is not positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	balance := inv.BalanceDue()
	cmp, err := amount.Cmp(balance)
	if err != nil {
		return err
	}
	if cmp > 0 {
		return ierr.NewError("payment exceeds balance due").
			WithHintf("Balance due is %s, payment was %s", balance.Display(), amount.Display()).
			WithReportableDetails(map[string]any{
				"invoice_id":  inv.ID,
				"balance_due": balance.String(),
				"payment":     amount.String(),
			}).
			MarkAll(ierr.ErrOverpayment, ierr.ErrConsistency)
	}

	next := types.InvoiceStatusPartiallyPaid
	if cmp == 0 {
		next = types.InvoiceStatusPaid
	}
	if err := inv.transitionTo(next); err != nil {
		return err
	}

	paid, err := inv.AmountPaid.Add(amount)
	if err != nil {
		return err
	}
	inv.AmountPaid = paid

	inv.touch(ctx)
	inv.record(types.NewDomainEvent(types.EventInvoicePaymentRecorded, inv.ID, map[string]string{
		"amount":      amount.String(),
		"balance_due": inv.BalanceDue().String(),
	}))
	if next == types.InvoiceStatusPaid {
		now := time.Now().UTC()
		inv.PaidAt = &now
		inv.record(types.NewDomainEvent(types.EventInvoicePaid, inv.ID, nil))
	}
	return nil
}

// BalanceDue is the amount still owed: Total minus AmountPaid
func (inv *Invoice) BalanceDue() types.Money {
	// both amounts carry the invoice currency, Sub cannot fail
	balance, _ := inv.Total.Sub(inv.AmountPaid)
	return balance
}

// Void cancels the invoice. Any non-paid, non-voided invoice can be
// voided; recorded payments stay on file for the audit trail.
func (inv *Invoice) Void(ctx context.Context, reason string) error {
	if err := inv.transitionTo(types.InvoiceStatusVoided); err != nil {
		return err
	}

	now := time.Now().UTC()
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.touch(ctx)
	inv.record(types.NewDomainEvent(types.EventInvoiceVoided, inv.ID, map[string]string{
		"reason":      reason,
		"amount_paid": inv.AmountPaid.String(),
	}))
	return nil
}

// Validate checks the invoice's monetary invariants hold
func (inv *Invoice) Validate() error {
	if err := inv.InvoiceStatus.Validate(); err != nil {
		return err
	}
	expected, err := inv.Subtotal.Add(inv.TaxAmount)
	if err != nil {
		return err
	}
	if !inv.Total.Equal(expected) {
		return ierr.NewError("invoice total does not match its parts").
			WithHint("Total must equal subtotal plus tax").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"subtotal":   inv.Subtotal.String(),
				"tax_amount": inv.TaxAmount.String(),
				"total":      inv.Total.String(),
			}).
			Mark(ierr.ErrConsistency)
	}
	paidCmp, err := inv.AmountPaid.Cmp(inv.Total)
	if err != nil {
		return err
	}
	if paidCmp > 0 {
		return ierr.NewError("amount paid exceeds total").
			WithHint("Amount paid can never exceed the invoice total").
			Mark(ierr.ErrConsistency)
	}
	return nil
}

func (inv *Invoice) ensureEditable() error {
	if inv.InvoiceStatus != types.InvoiceStatusDraft {
		return ierr.NewError("invoice is not editable").
			WithHintf("Only draft invoices can be modified, invoice is %s", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.InvoiceStatus,
			}).
			MarkAll(ierr.ErrInvoiceNotEditable, ierr.ErrInvalidOperation)
	}
	return nil
}

func (inv *Invoice) transitionTo(next types.InvoiceStatus) error {
	if !inv.InvoiceStatus.CanTransitionTo(next) {
		return ierr.NewError("illegal invoice status transition").
			WithHintf("Invoice cannot move from %s to %s", inv.InvoiceStatus, next).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"from":       inv.InvoiceStatus,
				"to":         next,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	inv.InvoiceStatus = next
	return nil
}

func (inv *Invoice) recalculateTotals() error {
	subtotal := types.ZeroMoney(inv.Currency)
	for _, item := range inv.LineItems {
		s, err := subtotal.Add(item.Amount)
		if err != nil {
			return err
		}
		subtotal = s
	}
	total, err := subtotal.Add(inv.TaxAmount)
	if err != nil {
		return err
	}
	inv.Subtotal = subtotal
	inv.Total = total
	return nil
}

func (inv *Invoice) touch(ctx context.Context) {
	inv.UpdatedAt = time.Now().UTC()
	inv.UpdatedBy = types.GetUserID(ctx)
}

func (inv *Invoice) record(e types.DomainEvent) {
	inv.events = append(inv.events, e)
}

// PopEvents drains and returns the pending domain events
func (inv *Invoice) PopEvents() []types.DomainEvent {
	events := inv.events
	inv.events = nil
	return events
}
