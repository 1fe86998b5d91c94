package dto

import (
	"github.com/netbill/netbill/internal/domain/payment"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/validator"
)

// RecordPaymentRequest records a settlement against an invoice
type RecordPaymentRequest struct {
	InvoiceID         string                  `json:"invoice_id" validate:"required"`
	Amount            string                  `json:"amount" validate:"required"`
	Currency          string                  `json:"currency" validate:"required,len=3"`
	PaymentMethodType types.PaymentMethodType `json:"payment_method_type" validate:"required"`
	// IdempotencyKey lets callers retry safely; when empty the service
	// derives one from the request
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.PaymentMethodType.Validate(); err != nil {
		return err
	}
	_, err := r.Money()
	return err
}

// Money parses the request amount
func (r *RecordPaymentRequest) Money() (types.Money, error) {
	return types.NewMoneyFromString(r.Amount, r.Currency)
}

// PaymentResponse is the API shape of a payment
type PaymentResponse struct {
	*payment.Payment
}

// ListPaymentsResponse lists payments recorded against an invoice
type ListPaymentsResponse struct {
	Items []*PaymentResponse `json:"items"`
	Total int                `json:"total"`
}
