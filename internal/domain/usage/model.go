package usage

import (
	"context"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// UsageData is a read-only record of accounted usage for one user over one
// billing period, supplied by the external accounting collaborator. The
// billing engine never writes usage.
type UsageData struct {
	UserID         string              `json:"user_id"`
	SessionSeconds int64               `json:"session_seconds"`
	TotalBytes     int64               `json:"total_bytes"`
	Period         types.BillingPeriod `json:"period"`
}

// Validate checks usage shape: negative counters are malformed input
func (u *UsageData) Validate() error {
	if u.UserID == "" {
		return ierr.NewError("usage record has no user").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if u.SessionSeconds < 0 {
		return ierr.NewError("negative session duration").
			WithHint("Session seconds must be non negative").
			WithReportableDetails(map[string]any{
				"session_seconds": u.SessionSeconds,
			}).
			Mark(ierr.ErrValidation)
	}
	if u.TotalBytes < 0 {
		return ierr.NewError("negative transferred bytes").
			WithHint("Total bytes must be non negative").
			WithReportableDetails(map[string]any{
				"total_bytes": u.TotalBytes,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Repository is the read boundary to the accounting collaborator
type Repository interface {
	// GetUsage returns the accounted usage for a user over a period
	GetUsage(ctx context.Context, userID string, period types.BillingPeriod) (*UsageData, error)
}
