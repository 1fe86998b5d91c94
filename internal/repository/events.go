package repository

import (
	"context"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
)

const insertEventQuery = `
INSERT INTO domain_events (id, event_name, aggregate_id, timestamp, payload)
VALUES (:id, :event_name, :aggregate_id, :timestamp, :payload)`

// drainEvents writes the aggregate's pending events into the outbox table.
// Callers must run it inside the same transaction as the state change so
// events never describe unsaved state.
func drainEvents(ctx context.Context, q postgres.Querier, events []types.DomainEvent) error {
	for _, e := range events {
		if _, err := q.NamedExecContext(ctx, insertEventQuery, e); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to persist domain event").
				WithReportableDetails(map[string]any{
					"event_name":   e.EventName,
					"aggregate_id": e.AggregateID,
				}).
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}
