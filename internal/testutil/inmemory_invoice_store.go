package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository with the same
// transactional contract as the real store: Create and Update drain the
// aggregate's event outbox, and Update enforces the optimistic version
// check. Reads return copies so a caller's aggregate never aliases the
// stored state; a stale copy saved after a concurrent update fails with
// ErrVersionConflict exactly like the SQL version check.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	mu     sync.Mutex
	events []types.DomainEvent
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func (m *InMemoryInvoiceStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.events = nil
}

// Events returns every event drained so far, in drain order
func (m *InMemoryInvoiceStore) Events() []types.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.DomainEvent(nil), m.events...)
}

func (m *InMemoryInvoiceStore) drain(events []types.DomainEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// cloneInvoice copies the aggregate and its line items so mutations on
// the returned value never leak into the stored state
func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	c := *inv
	c.LineItems = make([]*invoice.LineItem, len(inv.LineItems))
	for i, item := range inv.LineItems {
		itemCopy := *item
		c.LineItems[i] = &itemCopy
	}
	return &c
}

func (m *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	m.drain(inv.PopEvents())
	return m.InMemoryStore.Create(ctx, inv.ID, cloneInvoice(inv))
}

func (m *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return cloneInvoice(inv), nil
}

func (m *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	stored, err := m.InMemoryStore.Get(ctx, inv.ID)
	if err != nil {
		return err
	}
	if stored.Version != inv.Version {
		return ierr.NewError("invoice was modified concurrently").
			WithHint("Reload the invoice and retry the operation").
			WithReportableDetails(map[string]any{
				"invoice_id":       inv.ID,
				"expected_version": inv.Version,
				"stored_version":   stored.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	m.drain(inv.PopEvents())
	return m.InMemoryStore.Update(ctx, inv.ID, cloneInvoice(inv))
}

func (m *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := m.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	cloned := make([]*invoice.Invoice, len(invoices))
	for i, inv := range invoices {
		cloned[i] = cloneInvoice(inv)
	}
	return cloned, nil
}

func (m *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return m.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (m *InMemoryInvoiceStore) GetByUserAndPeriod(ctx context.Context, userID string, period types.BillingPeriod) (*invoice.Invoice, error) {
	invoices, err := m.InMemoryStore.List(ctx, nil, func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.UserID == userID && inv.Period.Start.Equal(period.Start) && inv.Period.End.Equal(period.End)
	}, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, ierr.NewError("invoice not found for user and period").
			WithReportableDetails(map[string]any{
				"user_id": userID,
				"period":  period.Label(),
			}).
			Mark(ierr.ErrNotFound)
	}
	return cloneInvoice(invoices[0]), nil
}

func (m *InMemoryInvoiceStore) CalculateUserBalance(ctx context.Context, userID string) ([]types.Money, error) {
	open := []types.InvoiceStatus{types.InvoiceStatusSent, types.InvoiceStatusPartiallyPaid}
	invoices, err := m.InMemoryStore.List(ctx, nil, func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.UserID == userID && lo.Contains(open, inv.InvoiceStatus)
	}, invoiceSortFn)
	if err != nil {
		return nil, err
	}

	byCurrency := make(map[string]types.Money)
	currencies := make([]string, 0)
	for _, inv := range invoices {
		balance, ok := byCurrency[inv.Currency]
		if !ok {
			balance = types.ZeroMoney(inv.Currency)
			currencies = append(currencies, inv.Currency)
		}
		sum, err := balance.Add(inv.BalanceDue())
		if err != nil {
			return nil, err
		}
		byCurrency[inv.Currency] = sum
	}

	sort.Strings(currencies)
	balances := make([]types.Money, 0, len(currencies))
	for _, c := range currencies {
		balances = append(balances, byCurrency[c])
	}
	return balances, nil
}

func invoiceFilterFn(_ context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.InvoiceIDs) > 0 && !lo.Contains(f.InvoiceIDs, inv.ID) {
		return false
	}
	if f.UserID != "" && inv.UserID != f.UserID {
		return false
	}
	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && inv.CreatedAt.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && inv.CreatedAt.After(*f.EndTime) {
			return false
		}
	}
	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
