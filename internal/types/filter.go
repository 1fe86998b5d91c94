package types

import (
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
)

const (
	defaultFilterLimit = 50
	maxFilterLimit     = 1000
)

// BaseFilter is implemented by all list filters
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	IsUnlimited() bool
}

// QueryFilter holds common pagination options
type QueryFilter struct {
	Limit   *int    `json:"limit,omitempty" form:"limit"`
	Offset  *int    `json:"offset,omitempty" form:"offset"`
	Status  *Status `json:"status,omitempty" form:"status"`
	NoLimit bool    `json:"-" form:"-"`
}

// NewDefaultQueryFilter creates a query filter with default pagination
func NewDefaultQueryFilter() *QueryFilter {
	limit := defaultFilterLimit
	offset := 0
	return &QueryFilter{Limit: &limit, Offset: &offset}
}

// NewNoLimitQueryFilter creates a query filter without pagination
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{NoLimit: true}
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 0 || *f.Limit > maxFilterLimit) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 0 and %d", maxFilterLimit).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return defaultFilterLimit
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) IsUnlimited() bool {
	return f != nil && f.NoLimit
}

// TimeRangeFilter restricts results to a creation-time window
type TimeRangeFilter struct {
	StartTime *time.Time `json:"start_time,omitempty" form:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" form:"end_time"`
}

func (f *TimeRangeFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return ierr.NewError("invalid time range").
			WithHint("End time must be after start time").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	*QueryFilter
	*TimeRangeFilter

	// InvoiceIDs restricts results to invoices with the specified IDs
	InvoiceIDs []string `json:"invoice_ids,omitempty" form:"invoice_ids"`

	// UserID filters invoices for a specific user
	UserID string `json:"user_id,omitempty" form:"user_id"`

	// InvoiceStatus filters by lifecycle state; multiple values are OR-ed
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
}

// NewInvoiceFilter creates a new invoice filter with default options
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{QueryFilter: NewDefaultQueryFilter()}
}

// NewNoLimitInvoiceFilter creates a new invoice filter without pagination
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{QueryFilter: NewNoLimitQueryFilter()}
}

func (f *InvoiceFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *InvoiceFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *InvoiceFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

func (f *InvoiceFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return false
	}
	return f.QueryFilter.IsUnlimited()
}

// PlanFilter represents the filter options for listing billing plans
type PlanFilter struct {
	*QueryFilter

	// ActiveOnly restricts results to active plans
	ActiveOnly bool `json:"active_only,omitempty" form:"active_only"`
}

// NewPlanFilter creates a new plan filter with default options
func NewPlanFilter() *PlanFilter {
	return &PlanFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *PlanFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *PlanFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

func (f *PlanFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return false
	}
	return f.QueryFilter.IsUnlimited()
}
