package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
)

type usageRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewUsageRepository builds the read-only usage store. The accounting
// system owns the usage_records table; the billing engine only aggregates
// from it and never writes.
func NewUsageRepository(client postgres.IClient, log *logger.Logger) usage.Repository {
	return &usageRepository{client: client, logger: log}
}

type usageAggregateRow struct {
	SessionSeconds sql.NullInt64 `db:"session_seconds"`
	TotalBytes     sql.NullInt64 `db:"total_bytes"`
	RecordCount    int64         `db:"record_count"`
}

const usageAggregateQuery = `
SELECT
	SUM(session_seconds) AS session_seconds,
	SUM(total_bytes)     AS total_bytes,
	COUNT(*)             AS record_count
FROM usage_records
WHERE user_id = $1
  AND recorded_at >= $2
  AND recorded_at < $3`

func (r *usageRepository) GetUsage(ctx context.Context, userID string, period types.BillingPeriod) (*usage.UsageData, error) {
	q := r.client.Querier(ctx)

	var row usageAggregateRow
	err := q.GetContext(ctx, &row, usageAggregateQuery, userID, period.Start, period.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			row.RecordCount = 0
		} else {
			return nil, ierr.WithError(err).
				WithHint("Failed to load usage records").
				Mark(ierr.ErrDatabase)
		}
	}

	// A user with no accounted records for the period is unknown to the
	// accounting system, not a zero-usage user.
	if row.RecordCount == 0 {
		return nil, ierr.NewError("no usage recorded").
			WithHintf("No usage was recorded for user %s in period %s", userID, period.Label()).
			WithReportableDetails(map[string]any{
				"user_id": userID,
				"period":  period.Label(),
			}).
			Mark(ierr.ErrNotFound)
	}

	data := &usage.UsageData{
		UserID:         userID,
		SessionSeconds: row.SessionSeconds.Int64,
		TotalBytes:     row.TotalBytes.Int64,
		Period:         period,
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}
