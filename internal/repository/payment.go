package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/netbill/netbill/internal/domain/payment"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

type paymentRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewPaymentRepository builds the sqlx-backed payment store
func NewPaymentRepository(client postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, logger: log}
}

type paymentRow struct {
	ID                string          `db:"id"`
	InvoiceID         string          `db:"invoice_id"`
	IdempotencyKey    sql.NullString  `db:"idempotency_key"`
	Amount            decimal.Decimal `db:"amount"`
	Currency          string          `db:"currency"`
	PaymentMethodType string          `db:"payment_method_type"`
	TransactionRef    string          `db:"transaction_ref"`
	PaymentStatus     string          `db:"payment_status"`
	RecordedAt        time.Time       `db:"recorded_at"`
	Status            string          `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	CreatedBy         string          `db:"created_by"`
	UpdatedBy         string          `db:"updated_by"`
}

func toPaymentRow(p *payment.Payment) *paymentRow {
	return &paymentRow{
		ID:                p.ID,
		InvoiceID:         p.InvoiceID,
		IdempotencyKey:    sql.NullString{String: p.IdempotencyKey, Valid: p.IdempotencyKey != ""},
		Amount:            p.Amount.Amount,
		Currency:          p.Amount.Currency,
		PaymentMethodType: string(p.PaymentMethodType),
		TransactionRef:    p.TransactionRef,
		PaymentStatus:     string(p.PaymentStatus),
		RecordedAt:        p.RecordedAt,
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		CreatedBy:         p.CreatedBy,
		UpdatedBy:         p.UpdatedBy,
	}
}

func (r *paymentRow) toDomain() *payment.Payment {
	return &payment.Payment{
		ID:                r.ID,
		InvoiceID:         r.InvoiceID,
		IdempotencyKey:    r.IdempotencyKey.String,
		Amount:            types.NewMoney(r.Amount, r.Currency),
		PaymentMethodType: types.PaymentMethodType(r.PaymentMethodType),
		TransactionRef:    r.TransactionRef,
		PaymentStatus:     types.PaymentStatus(r.PaymentStatus),
		RecordedAt:        r.RecordedAt,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

const insertPaymentQuery = `
INSERT INTO payments (
	id, invoice_id, idempotency_key, amount, currency, payment_method_type,
	transaction_ref, payment_status, recorded_at,
	status, created_at, updated_at, created_by, updated_by
) VALUES (
	:id, :invoice_id, :idempotency_key, :amount, :currency, :payment_method_type,
	:transaction_ref, :payment_status, :recorded_at,
	:status, :created_at, :updated_at, :created_by, :updated_by
)`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.WithContext(ctx).Debugw("creating payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
	)

	q := r.client.Querier(ctx)
	if _, err := q.NamedExecContext(ctx, insertPaymentQuery, toPaymentRow(p)); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This payment was already recorded").
				WithReportableDetails(map[string]any{
					"payment_id":      p.ID,
					"idempotency_key": p.IdempotencyKey,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	q := r.client.Querier(ctx)

	var row paymentRow
	err := q.GetContext(ctx, &row, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s was not found", id).
				WithReportableDetails(map[string]any{"payment_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load payment").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	q := r.client.Querier(ctx)

	var row paymentRow
	err := q.GetContext(ctx, &row, `SELECT * FROM payments WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("No payment found for idempotency key").
				WithReportableDetails(map[string]any{"idempotency_key": key}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load payment").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	q := r.client.Querier(ctx)

	var rows []paymentRow
	err := q.SelectContext(ctx, &rows,
		`SELECT * FROM payments WHERE invoice_id = $1 ORDER BY recorded_at, id`, invoiceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}

	payments := make([]*payment.Payment, 0, len(rows))
	for i := range rows {
		payments = append(payments, rows[i].toDomain())
	}
	return payments, nil
}
