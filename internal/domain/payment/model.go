package payment

import (
	"context"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// Payment is one settlement recorded against an invoice. Payments are
// append-only facts; corrections happen by recording compensating entries,
// never by editing a stored payment.
type Payment struct {
	ID                string                  `json:"id" db:"id"`
	InvoiceID         string                  `json:"invoice_id" db:"invoice_id"`
	IdempotencyKey    string                  `json:"idempotency_key" db:"idempotency_key"`
	Amount            types.Money             `json:"amount"`
	PaymentMethodType types.PaymentMethodType `json:"payment_method_type" db:"payment_method_type"`
	TransactionRef    string                  `json:"transaction_ref" db:"transaction_ref"`
	PaymentStatus     types.PaymentStatus     `json:"payment_status" db:"payment_status"`
	RecordedAt        time.Time               `json:"recorded_at" db:"recorded_at"`

	types.BaseModel
}

// NewPayment builds a succeeded payment against an invoice
func NewPayment(ctx context.Context, invoiceID string, amount types.Money, method types.PaymentMethodType) (*Payment, error) {
	p := &Payment{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:         invoiceID,
		Amount:            amount,
		PaymentMethodType: method,
		TransactionRef:    types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_TRANSACTION),
		PaymentStatus:     types.PaymentStatusSucceeded,
		RecordedAt:        time.Now().UTC(),
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the payment's shape
func (p *Payment) Validate() error {
	if p.InvoiceID == "" {
		return ierr.NewError("payment has no invoice").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("payment amount is not positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": p.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := p.PaymentMethodType.Validate(); err != nil {
		return err
	}
	return p.PaymentStatus.Validate()
}

// Repository persists payments
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Payment, error)
}
