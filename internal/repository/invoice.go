package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

type invoiceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewInvoiceRepository builds the sqlx-backed invoice store
func NewInvoiceRepository(client postgres.IClient, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{client: client, logger: log}
}

type invoiceRow struct {
	ID            string          `db:"id"`
	InvoiceNumber string          `db:"invoice_number"`
	UserID        string          `db:"user_id"`
	Currency      string          `db:"currency"`
	PeriodStart   time.Time       `db:"period_start"`
	PeriodEnd     time.Time       `db:"period_end"`
	InvoiceStatus string          `db:"invoice_status"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	TaxAmount     decimal.Decimal `db:"tax_amount"`
	TaxName       sql.NullString  `db:"tax_name"`
	VoidReason    sql.NullString  `db:"void_reason"`
	Total         decimal.Decimal `db:"total"`
	AmountPaid    decimal.Decimal `db:"amount_paid"`
	SentAt        sql.NullTime    `db:"sent_at"`
	PaidAt        sql.NullTime    `db:"paid_at"`
	VoidedAt      sql.NullTime    `db:"voided_at"`
	Version       int             `db:"version"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	CreatedBy     string          `db:"created_by"`
	UpdatedBy     string          `db:"updated_by"`
}

type lineItemRow struct {
	ID          string          `db:"id"`
	InvoiceID   string          `db:"invoice_id"`
	Description string          `db:"description"`
	RateType    string          `db:"rate_type"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	CreatedBy   string          `db:"created_by"`
	UpdatedBy   string          `db:"updated_by"`
}

func toInvoiceRow(inv *invoice.Invoice) *invoiceRow {
	return &invoiceRow{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		UserID:        inv.UserID,
		Currency:      inv.Currency,
		PeriodStart:   inv.Period.Start,
		PeriodEnd:     inv.Period.End,
		InvoiceStatus: string(inv.InvoiceStatus),
		Subtotal:      inv.Subtotal.Amount,
		TaxAmount:     inv.TaxAmount.Amount,
		TaxName:       sql.NullString{String: inv.TaxName, Valid: inv.TaxName != ""},
		VoidReason:    sql.NullString{String: inv.VoidReason, Valid: inv.VoidReason != ""},
		Total:         inv.Total.Amount,
		AmountPaid:    inv.AmountPaid.Amount,
		SentAt:        nullTime(inv.SentAt),
		PaidAt:        nullTime(inv.PaidAt),
		VoidedAt:      nullTime(inv.VoidedAt),
		Version:       inv.Version,
		Status:        string(inv.Status),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		CreatedBy:     inv.CreatedBy,
		UpdatedBy:     inv.UpdatedBy,
	}
}

func (r *invoiceRow) toDomain(items []*invoice.LineItem) *invoice.Invoice {
	return &invoice.Invoice{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		UserID:        r.UserID,
		Currency:      r.Currency,
		Period:        types.BillingPeriod{Start: r.PeriodStart, End: r.PeriodEnd},
		InvoiceStatus: types.InvoiceStatus(r.InvoiceStatus),
		LineItems:     items,
		Subtotal:      types.NewMoney(r.Subtotal, r.Currency),
		TaxAmount:     types.NewMoney(r.TaxAmount, r.Currency),
		TaxName:       r.TaxName.String,
		VoidReason:    r.VoidReason.String,
		Total:         types.NewMoney(r.Total, r.Currency),
		AmountPaid:    types.NewMoney(r.AmountPaid, r.Currency),
		SentAt:        timePtr(r.SentAt),
		PaidAt:        timePtr(r.PaidAt),
		VoidedAt:      timePtr(r.VoidedAt),
		Version:       r.Version,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func toLineItemRow(li *invoice.LineItem) *lineItemRow {
	return &lineItemRow{
		ID:          li.ID,
		InvoiceID:   li.InvoiceID,
		Description: li.Description,
		RateType:    string(li.RateType),
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		Amount:      li.Amount.Amount,
		Currency:    li.Amount.Currency,
		Status:      string(li.Status),
		CreatedAt:   li.CreatedAt,
		UpdatedAt:   li.UpdatedAt,
		CreatedBy:   li.CreatedBy,
		UpdatedBy:   li.UpdatedBy,
	}
}

func (r *lineItemRow) toDomain() *invoice.LineItem {
	return &invoice.LineItem{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		Description: r.Description,
		RateType:    types.RateType(r.RateType),
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Amount:      types.NewMoney(r.Amount, r.Currency),
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

const insertInvoiceQuery = `
INSERT INTO invoices (
	id, invoice_number, user_id, currency, period_start, period_end,
	invoice_status, subtotal, tax_amount, tax_name, total, amount_paid,
	void_reason, sent_at, paid_at, voided_at, version,
	status, created_at, updated_at, created_by, updated_by
) VALUES (
	:id, :invoice_number, :user_id, :currency, :period_start, :period_end,
	:invoice_status, :subtotal, :tax_amount, :tax_name, :total, :amount_paid,
	:void_reason, :sent_at, :paid_at, :voided_at, :version,
	:status, :created_at, :updated_at, :created_by, :updated_by
)`

const insertLineItemQuery = `
INSERT INTO invoice_line_items (
	id, invoice_id, description, rate_type, quantity, unit_price, amount, currency,
	status, created_at, updated_at, created_by, updated_by
) VALUES (
	:id, :invoice_id, :description, :rate_type, :quantity, :unit_price, :amount, :currency,
	:status, :created_at, :updated_at, :created_by, :updated_by
)`

// updateInvoiceQuery carries the optimistic version check: the WHERE clause
// only matches when nobody else bumped the version since this aggregate was
// loaded
const updateInvoiceQuery = `
UPDATE invoices SET
	invoice_status = :invoice_status,
	subtotal = :subtotal,
	tax_amount = :tax_amount,
	tax_name = :tax_name,
	total = :total,
	amount_paid = :amount_paid,
	void_reason = :void_reason,
	sent_at = :sent_at,
	paid_at = :paid_at,
	voided_at = :voided_at,
	version = :version + 1,
	status = :status,
	updated_at = :updated_at,
	updated_by = :updated_by
WHERE id = :id AND version = :version`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.WithContext(ctx).Debugw("creating invoice",
		"invoice_id", inv.ID,
		"user_id", inv.UserID,
	)

	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)

		if _, err := q.NamedExecContext(ctx, insertInvoiceQuery, toInvoiceRow(inv)); err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("An invoice already exists for this user and period").
					WithReportableDetails(map[string]any{
						"invoice_id": inv.ID,
						"user_id":    inv.UserID,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
			return ierr.WithError(err).
				WithHint("Failed to create invoice").
				Mark(ierr.ErrDatabase)
		}

		for _, li := range inv.LineItems {
			if _, err := q.NamedExecContext(ctx, insertLineItemQuery, toLineItemRow(li)); err != nil {
				return ierr.WithError(err).
					WithHint("Failed to create invoice line item").
					Mark(ierr.ErrDatabase)
			}
		}

		return drainEvents(ctx, q, inv.PopEvents())
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	q := r.client.Querier(ctx)

	var row invoiceRow
	err := q.GetContext(ctx, &row, `SELECT * FROM invoices WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice %s was not found", id).
				WithReportableDetails(map[string]any{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load invoice").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.listLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toDomain(items), nil
}

func (r *invoiceRepository) listLineItems(ctx context.Context, invoiceID string) ([]*invoice.LineItem, error) {
	q := r.client.Querier(ctx)

	var rows []lineItemRow
	err := q.SelectContext(ctx, &rows,
		`SELECT * FROM invoice_line_items WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load invoice line items").
			Mark(ierr.ErrDatabase)
	}

	items := make([]*invoice.LineItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDomain())
	}
	return items, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.WithContext(ctx).Debugw("updating invoice",
		"invoice_id", inv.ID,
		"invoice_status", inv.InvoiceStatus,
		"version", inv.Version,
	)

	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)

		res, err := q.NamedExecContext(ctx, updateInvoiceQuery, toInvoiceRow(inv))
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update invoice").
				Mark(ierr.ErrDatabase)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update invoice").
				Mark(ierr.ErrDatabase)
		}
		if affected == 0 {
			return ierr.NewError("invoice was modified concurrently").
				WithHint("Reload the invoice and retry the operation").
				WithReportableDetails(map[string]any{
					"invoice_id":       inv.ID,
					"expected_version": inv.Version,
				}).
				Mark(ierr.ErrVersionConflict)
		}
		inv.Version++

		// line items are append-only; insert the ones the database has not seen
		for _, li := range inv.LineItems {
			var exists bool
			if err := q.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM invoice_line_items WHERE id = $1)`, li.ID); err != nil {
				return ierr.WithError(err).
					WithHint("Failed to check invoice line item").
					Mark(ierr.ErrDatabase)
			}
			if exists {
				continue
			}
			if _, err := q.NamedExecContext(ctx, insertLineItemQuery, toLineItemRow(li)); err != nil {
				return ierr.WithError(err).
					WithHint("Failed to create invoice line item").
					Mark(ierr.ErrDatabase)
			}
		}

		return drainEvents(ctx, q, inv.PopEvents())
	})
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query, args := buildInvoiceListQuery(`SELECT * FROM invoices`, filter, true)

	q := r.client.Querier(ctx)
	var rows []invoiceRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	invoices := make([]*invoice.Invoice, 0, len(rows))
	for i := range rows {
		items, err := r.listLineItems(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, rows[i].toDomain(items))
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query, args := buildInvoiceListQuery(`SELECT COUNT(*) FROM invoices`, filter, false)

	q := r.client.Querier(ctx)
	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) GetByUserAndPeriod(ctx context.Context, userID string, period types.BillingPeriod) (*invoice.Invoice, error) {
	q := r.client.Querier(ctx)

	var row invoiceRow
	err := q.GetContext(ctx, &row,
		`SELECT * FROM invoices WHERE user_id = $1 AND period_start = $2 AND period_end = $3`,
		userID, period.Start, period.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("No invoice found for user %s in %s", userID, period.Label()).
				WithReportableDetails(map[string]any{
					"user_id": userID,
					"period":  period.Label(),
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load invoice").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.listLineItems(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return row.toDomain(items), nil
}

const userBalanceQuery = `
SELECT currency, SUM(total - amount_paid) AS balance
FROM invoices
WHERE user_id = $1 AND invoice_status IN ($2, $3)
GROUP BY currency
ORDER BY currency`

func (r *invoiceRepository) CalculateUserBalance(ctx context.Context, userID string) ([]types.Money, error) {
	q := r.client.Querier(ctx)

	var rows []struct {
		Currency string          `db:"currency"`
		Balance  decimal.Decimal `db:"balance"`
	}
	err := q.SelectContext(ctx, &rows, userBalanceQuery,
		userID, string(types.InvoiceStatusSent), string(types.InvoiceStatusPartiallyPaid))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to calculate user balance").
			WithReportableDetails(map[string]any{"user_id": userID}).
			Mark(ierr.ErrDatabase)
	}

	balances := make([]types.Money, 0, len(rows))
	for _, row := range rows {
		balances = append(balances, types.NewMoney(row.Balance, row.Currency))
	}
	return balances, nil
}

func buildInvoiceListQuery(base string, filter *types.InvoiceFilter, paginate bool) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.UserID != "" {
			conditions = append(conditions, fmt.Sprintf("user_id = %s", arg(filter.UserID)))
		}
		if len(filter.InvoiceIDs) > 0 {
			placeholders := make([]string, 0, len(filter.InvoiceIDs))
			for _, id := range filter.InvoiceIDs {
				placeholders = append(placeholders, arg(id))
			}
			conditions = append(conditions, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")))
		}
		if len(filter.InvoiceStatus) > 0 {
			placeholders := make([]string, 0, len(filter.InvoiceStatus))
			for _, st := range filter.InvoiceStatus {
				placeholders = append(placeholders, arg(string(st)))
			}
			conditions = append(conditions, fmt.Sprintf("invoice_status IN (%s)", strings.Join(placeholders, ", ")))
		}
		if filter.TimeRangeFilter != nil {
			if filter.StartTime != nil {
				conditions = append(conditions, fmt.Sprintf("created_at >= %s", arg(*filter.StartTime)))
			}
			if filter.EndTime != nil {
				conditions = append(conditions, fmt.Sprintf("created_at <= %s", arg(*filter.EndTime)))
			}
		}
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if paginate {
		query += " ORDER BY created_at DESC, id"
		if filter == nil || !filter.IsUnlimited() {
			f := filter
			if f == nil {
				f = types.NewInvoiceFilter()
			}
			query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(f.GetLimit()), arg(f.GetOffset()))
		}
	}
	return query, args
}
