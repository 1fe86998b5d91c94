package types

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle.
// Status moves only forward: draft → sent → {partially_paid ⇄ paid}, plus a
// terminal voided reachable from any non-paid state.
type InvoiceStatus string

const (
	// InvoiceStatusDraft indicates the invoice can still accumulate items
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusSent indicates items are frozen and payments may be recorded
	InvoiceStatusSent InvoiceStatus = "SENT"
	// InvoiceStatusPartiallyPaid indicates a positive balance remains
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	// InvoiceStatusPaid indicates the balance has reached zero; terminal unless voided
	InvoiceStatusPaid InvoiceStatus = "PAID"
	// InvoiceStatusVoided indicates the invoice is cancelled; terminal
	InvoiceStatusVoided InvoiceStatus = "VOIDED"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusVoided,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// invoiceStatusTransitions defines the forward-only state machine
var invoiceStatusTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft: {
		InvoiceStatusSent,
		InvoiceStatusVoided,
	},
	InvoiceStatusSent: {
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusVoided,
	},
	InvoiceStatusPartiallyPaid: {
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusVoided,
	},
	InvoiceStatusPaid:   {},
	InvoiceStatusVoided: {},
}

// CanTransitionTo reports whether the state machine permits moving from s to next
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	allowed, ok := invoiceStatusTransitions[s]
	if !ok {
		return false
	}
	return lo.Contains(allowed, next)
}

// IsTerminal reports whether no further transitions are possible
func (s InvoiceStatus) IsTerminal() bool {
	return len(invoiceStatusTransitions[s]) == 0
}
