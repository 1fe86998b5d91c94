package invoice

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem is one charge on an invoice. Amount is fixed at the currency's
// minor unit precision the moment the item is added; it never changes
// afterwards, even if the rate that produced it does.
type LineItem struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	Description string          `json:"description" db:"description"`
	RateType    types.RateType  `json:"rate_type" db:"rate_type"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Amount      types.Money     `json:"amount"`
	Metadata    types.Metadata  `json:"metadata,omitempty"`

	types.BaseModel
}

// Validate checks the line item's shape
func (li *LineItem) Validate() error {
	if li.Description == "" {
		return ierr.NewError("line item has no description").
			WithHint("Line item description is required").
			Mark(ierr.ErrValidation)
	}
	if li.Amount.IsNegative() {
		return ierr.NewError("negative line item amount").
			WithHint("Line item amount must be non negative").
			WithReportableDetails(map[string]any{
				"amount": li.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if li.Quantity.IsNegative() {
		return ierr.NewError("negative line item quantity").
			WithHint("Line item quantity must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
