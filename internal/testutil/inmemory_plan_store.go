package testutil

import (
	"context"
	"sync"

	"github.com/netbill/netbill/internal/domain/plan"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.BillingPlan]
	mu     sync.Mutex
	events []types.DomainEvent
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.BillingPlan](),
	}
}

func (m *InMemoryPlanStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.events = nil
}

// Events returns every event drained so far, in drain order
func (m *InMemoryPlanStore) Events() []types.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.DomainEvent(nil), m.events...)
}

func (m *InMemoryPlanStore) drain(events []types.DomainEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

func (m *InMemoryPlanStore) Create(ctx context.Context, p *plan.BillingPlan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			WithHint("Plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := m.InMemoryStore.Create(ctx, p.ID, p); err != nil {
		return err
	}
	m.drain(p.PopEvents())
	return nil
}

func (m *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.BillingPlan, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryPlanStore) Update(ctx context.Context, p *plan.BillingPlan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			WithHint("Plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := m.InMemoryStore.Update(ctx, p.ID, p); err != nil {
		return err
	}
	m.drain(p.PopEvents())
	return nil
}

func (m *InMemoryPlanStore) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.BillingPlan, error) {
	return m.InMemoryStore.List(ctx, filter, planFilterFn, planSortFn)
}

func (m *InMemoryPlanStore) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	return m.InMemoryStore.Count(ctx, filter, planFilterFn)
}

func planFilterFn(_ context.Context, p *plan.BillingPlan, filter interface{}) bool {
	f, ok := filter.(*types.PlanFilter)
	if !ok || f == nil {
		return true
	}
	if f.ActiveOnly && p.Status != types.StatusActive {
		return false
	}
	if f.QueryFilter != nil && f.QueryFilter.Status != nil && p.Status != *f.QueryFilter.Status {
		return false
	}
	return true
}

func planSortFn(i, j *plan.BillingPlan) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
