package types

import (
	"fmt"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
)

// BillingPeriod is the half-open time window [Start, End) an invoice covers
type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewMonthlyBillingPeriod returns the calendar-month window containing t (UTC)
func NewMonthlyBillingPeriod(t time.Time) BillingPeriod {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return BillingPeriod{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

func (p BillingPeriod) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ierr.NewError("billing period is incomplete").
			WithHint("Both period start and end must be set").
			Mark(ierr.ErrValidation)
	}
	if !p.End.After(p.Start) {
		return ierr.NewError("billing period end must be after start").
			WithHint("Period end must be after period start").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Contains reports whether t falls within [Start, End)
func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Label returns a human readable label like 2026-08
func (p BillingPeriod) Label() string {
	return fmt.Sprintf("%04d-%02d", p.Start.Year(), int(p.Start.Month()))
}
