package invoice

import (
	"context"

	"github.com/netbill/netbill/internal/types"
)

// Repository persists invoices together with their line items. Create and
// Update must drain the aggregate's event outbox in the same transaction
// as the state change. Update must compare the stored version against the
// aggregate's and fail with ErrVersionConflict on a mismatch, bumping the
// version on success.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)
	// GetByUserAndPeriod resolves the invoice drafted for a user's billing
	// period, used by the idempotent billing run
	GetByUserAndPeriod(ctx context.Context, userID string, period types.BillingPeriod) (*Invoice, error)
	// CalculateUserBalance aggregates the outstanding balance across a
	// user's open invoices, one total per currency
	CalculateUserBalance(ctx context.Context, userID string) ([]types.Money, error)
}
