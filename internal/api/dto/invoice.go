package dto

import (
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/validator"
)

// GenerateInvoiceRequest triggers invoice generation for a user's billing
// period. Period is the month in YYYY-MM form.
type GenerateInvoiceRequest struct {
	UserID string `json:"user_id" validate:"required"`
	PlanID string `json:"plan_id" validate:"required"`
	Period string `json:"period" validate:"required"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	_, err := r.BillingPeriod()
	return err
}

// BillingPeriod parses the YYYY-MM period into a calendar month window
func (r *GenerateInvoiceRequest) BillingPeriod() (types.BillingPeriod, error) {
	t, err := time.Parse("2006-01", r.Period)
	if err != nil {
		return types.BillingPeriod{}, ierr.WithError(err).
			WithHintf("Invalid billing period %q, expected YYYY-MM", r.Period).
			Mark(ierr.ErrValidation)
	}
	return types.NewMonthlyBillingPeriod(t), nil
}

// InvoiceResponse is the API shape of an invoice
type InvoiceResponse struct {
	*invoice.Invoice
	BalanceDue types.Money `json:"balance_due"`
}

// NewInvoiceResponse builds the response with the derived balance
func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice:    inv,
		BalanceDue: inv.BalanceDue(),
	}
}

// ListInvoicesResponse is the paginated invoice listing
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

// VoidInvoiceRequest cancels an invoice with an audit reason
type VoidInvoiceRequest struct {
	Reason string `json:"reason"`
}

// UserBalanceResponse carries a user's outstanding balance per currency
type UserBalanceResponse struct {
	UserID   string        `json:"user_id"`
	Balances []types.Money `json:"balances"`
}
