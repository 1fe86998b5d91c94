package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// InMemoryUsageStore implements usage.Repository as a seedable fake for
// the external accounting collaborator
type InMemoryUsageStore struct {
	mu      sync.RWMutex
	records map[string]*usage.UsageData
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		records: make(map[string]*usage.UsageData),
	}
}

func usageKey(userID string, period types.BillingPeriod) string {
	return fmt.Sprintf("%s/%s", userID, period.Label())
}

// Seed registers usage for a user's period
func (m *InMemoryUsageStore) Seed(u *usage.UsageData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[usageKey(u.UserID, u.Period)] = u
}

func (m *InMemoryUsageStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*usage.UsageData)
}

func (m *InMemoryUsageStore) GetUsage(ctx context.Context, userID string, period types.BillingPeriod) (*usage.UsageData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.records[usageKey(userID, period)]
	if !ok {
		return nil, ierr.NewError("no usage recorded").
			WithHintf("No usage found for user %s in %s", userID, period.Label()).
			WithReportableDetails(map[string]any{
				"user_id": userID,
				"period":  period.Label(),
			}).
			Mark(ierr.ErrNotFound)
	}
	return u, nil
}
