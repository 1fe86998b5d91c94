package testutil

import (
	"context"

	"github.com/netbill/netbill/internal/domain/payment"
	ierr "github.com/netbill/netbill/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func (m *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if p.IdempotencyKey != "" {
		if existing, err := m.GetByIdempotencyKey(ctx, p.IdempotencyKey); err == nil {
			return ierr.NewError("payment already recorded").
				WithHint("A payment with this idempotency key already exists").
				WithReportableDetails(map[string]any{
					"payment_id":      existing.ID,
					"idempotency_key": p.IdempotencyKey,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return m.InMemoryStore.Create(ctx, p.ID, p)
}

func (m *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryPaymentStore) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	payments, err := m.InMemoryStore.List(ctx, nil, func(_ context.Context, p *payment.Payment, _ interface{}) bool {
		return p.IdempotencyKey == key
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ierr.NewError("payment not found").
			WithReportableDetails(map[string]any{"idempotency_key": key}).
			Mark(ierr.ErrNotFound)
	}
	return payments[0], nil
}

func (m *InMemoryPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	return m.InMemoryStore.List(ctx, nil, func(_ context.Context, p *payment.Payment, _ interface{}) bool {
		return p.InvoiceID == invoiceID
	}, func(i, j *payment.Payment) bool {
		return i.RecordedAt.Before(j.RecordedAt)
	})
}
