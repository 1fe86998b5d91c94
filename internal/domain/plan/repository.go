package plan

import (
	"context"

	"github.com/netbill/netbill/internal/types"
)

// Repository persists billing plans together with their rates. Save-style
// methods must drain the aggregate's event outbox in the same transaction
// as the state change.
type Repository interface {
	Create(ctx context.Context, p *BillingPlan) error
	Get(ctx context.Context, id string) (*BillingPlan, error)
	Update(ctx context.Context, p *BillingPlan) error
	List(ctx context.Context, filter *types.PlanFilter) ([]*BillingPlan, error)
	Count(ctx context.Context, filter *types.PlanFilter) (int, error)
}
