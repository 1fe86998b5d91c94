package types

// Status is a type for the lifecycle status of a persisted resource.
// Records are never hard-deleted; they move to StatusArchived instead so
// historical invoices remain explainable.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusArchived Status = "archived"
)
