package types

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/samber/lo"
)

// PaymentStatus represents the status of a payment. Only succeeded payments
// count towards an invoice's paid total.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentMethodType represents how a payment was made
type PaymentMethodType string

const (
	PaymentMethodTypeCard         PaymentMethodType = "CARD"
	PaymentMethodTypeBankTransfer PaymentMethodType = "BANK_TRANSFER"
	PaymentMethodTypeOffline      PaymentMethodType = "OFFLINE"
	PaymentMethodTypeCredits      PaymentMethodType = "CREDITS"
)

func (t PaymentMethodType) String() string {
	return string(t)
}

func (t PaymentMethodType) Validate() error {
	allowed := []PaymentMethodType{
		PaymentMethodTypeCard,
		PaymentMethodTypeBankTransfer,
		PaymentMethodTypeOffline,
		PaymentMethodTypeCredits,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid payment method type").
			WithHint("Please provide a valid payment method type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
