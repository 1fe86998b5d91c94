package types

import (
	"encoding/json"
	"time"
)

// DomainEvent is an immutable fact describing an aggregate state change.
// Mutating aggregate operations append events to an internal outbox; the
// persistence layer drains the outbox within the same transaction as the
// state change, so side effects never run against unsaved state.
type DomainEvent struct {
	ID          string          `json:"id" db:"id"`
	EventName   string          `json:"event_name" db:"event_name"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
}

// NewDomainEvent builds an event envelope; payload marshalling errors
// degrade to an empty payload rather than blocking the state change.
func NewDomainEvent(name, aggregateID string, payload any) DomainEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return DomainEvent{
		ID:          GenerateUUIDWithPrefix(UUID_PREFIX_EVENT),
		EventName:   name,
		AggregateID: aggregateID,
		Timestamp:   time.Now().UTC(),
		Payload:     raw,
	}
}

// invoice event names
const (
	EventInvoiceDrafted         = "invoice.drafted"
	EventInvoiceItemAdded       = "invoice.item.added"
	EventInvoiceTaxApplied      = "invoice.tax.applied"
	EventInvoiceSent            = "invoice.sent"
	EventInvoicePaymentRecorded = "invoice.payment.recorded"
	EventInvoicePaid            = "invoice.paid"
	EventInvoiceVoided          = "invoice.voided"
)

// billing plan event names
const (
	EventPlanCreated     = "plan.created"
	EventPlanRateAdded   = "plan.rate.added"
	EventPlanActivated   = "plan.activated"
	EventPlanDeactivated = "plan.deactivated"
)
