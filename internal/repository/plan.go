package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/rate"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

type planRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewPlanRepository builds the sqlx-backed billing plan store
func NewPlanRepository(client postgres.IClient, log *logger.Logger) plan.Repository {
	return &planRepository{client: client, logger: log}
}

type planRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Currency    string    `db:"currency"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	CreatedBy   string    `db:"created_by"`
	UpdatedBy   string    `db:"updated_by"`
}

type rateRow struct {
	ID            string          `db:"id"`
	PlanID        string          `db:"plan_id"`
	RateType      string          `db:"rate_type"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	Tiers         []byte          `db:"tiers"`
	Currency      string          `db:"currency"`
	EffectiveDate time.Time       `db:"effective_date"`
	ExpiryDate    sql.NullTime    `db:"expiry_date"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	CreatedBy     string          `db:"created_by"`
	UpdatedBy     string          `db:"updated_by"`
}

func toPlanRow(p *plan.BillingPlan) *planRow {
	return &planRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Currency:    p.Currency,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		CreatedBy:   p.CreatedBy,
		UpdatedBy:   p.UpdatedBy,
	}
}

func (r *planRow) toDomain(rates []*rate.Rate) *plan.BillingPlan {
	return &plan.BillingPlan{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Currency:    r.Currency,
		Rates:       rates,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func toRateRow(rt *rate.Rate) (*rateRow, error) {
	var tiers []byte
	if len(rt.Tiers) > 0 {
		b, err := json.Marshal(rt.Tiers)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode rate tiers").
				Mark(ierr.ErrSystem)
		}
		tiers = b
	}
	return &rateRow{
		ID:            rt.ID,
		PlanID:        rt.PlanID,
		RateType:      string(rt.RateType),
		UnitPrice:     rt.UnitPrice,
		Tiers:         tiers,
		Currency:      rt.Currency,
		EffectiveDate: rt.EffectiveDate,
		ExpiryDate:    nullTime(zeroTimePtr(rt.ExpiryDate)),
		Status:        string(rt.Status),
		CreatedAt:     rt.CreatedAt,
		UpdatedAt:     rt.UpdatedAt,
		CreatedBy:     rt.CreatedBy,
		UpdatedBy:     rt.UpdatedBy,
	}, nil
}

func (r *rateRow) toDomain() (*rate.Rate, error) {
	var tiers []rate.Tier
	if len(r.Tiers) > 0 {
		if err := json.Unmarshal(r.Tiers, &tiers); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode rate tiers").
				Mark(ierr.ErrSystem)
		}
	}
	var expiry time.Time
	if r.ExpiryDate.Valid {
		expiry = r.ExpiryDate.Time
	}
	return &rate.Rate{
		ID:            r.ID,
		PlanID:        r.PlanID,
		RateType:      types.RateType(r.RateType),
		UnitPrice:     r.UnitPrice,
		Tiers:         tiers,
		Currency:      r.Currency,
		EffectiveDate: r.EffectiveDate,
		ExpiryDate:    expiry,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}, nil
}

func zeroTimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const insertPlanQuery = `
INSERT INTO billing_plans (
	id, name, description, currency,
	status, created_at, updated_at, created_by, updated_by
) VALUES (
	:id, :name, :description, :currency,
	:status, :created_at, :updated_at, :created_by, :updated_by
)`

const updatePlanQuery = `
UPDATE billing_plans SET
	name = :name,
	description = :description,
	status = :status,
	updated_at = :updated_at,
	updated_by = :updated_by
WHERE id = :id`

const insertRateQuery = `
INSERT INTO rates (
	id, plan_id, rate_type, unit_price, tiers, currency, effective_date, expiry_date,
	status, created_at, updated_at, created_by, updated_by
) VALUES (
	:id, :plan_id, :rate_type, :unit_price, :tiers, :currency, :effective_date, :expiry_date,
	:status, :created_at, :updated_at, :created_by, :updated_by
) ON CONFLICT (id) DO NOTHING`

func (r *planRepository) Create(ctx context.Context, p *plan.BillingPlan) error {
	r.logger.WithContext(ctx).Debugw("creating billing plan",
		"plan_id", p.ID,
		"name", p.Name,
	)

	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)

		if _, err := q.NamedExecContext(ctx, insertPlanQuery, toPlanRow(p)); err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("A plan with this ID already exists").
					Mark(ierr.ErrAlreadyExists)
			}
			return ierr.WithError(err).
				WithHint("Failed to create billing plan").
				Mark(ierr.ErrDatabase)
		}

		if err := r.insertRates(ctx, q, p.Rates); err != nil {
			return err
		}
		return drainEvents(ctx, q, p.PopEvents())
	})
}

func (r *planRepository) insertRates(ctx context.Context, q postgres.Querier, rates []*rate.Rate) error {
	for _, rt := range rates {
		row, err := toRateRow(rt)
		if err != nil {
			return err
		}
		if _, err := q.NamedExecContext(ctx, insertRateQuery, row); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create rate").
				WithReportableDetails(map[string]any{"rate_id": rt.ID}).
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.BillingPlan, error) {
	q := r.client.Querier(ctx)

	var row planRow
	err := q.GetContext(ctx, &row, `SELECT * FROM billing_plans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Plan %s was not found", id).
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load billing plan").
			Mark(ierr.ErrDatabase)
	}

	rates, err := r.listRates(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toDomain(rates), nil
}

func (r *planRepository) listRates(ctx context.Context, planID string) ([]*rate.Rate, error) {
	q := r.client.Querier(ctx)

	var rows []rateRow
	err := q.SelectContext(ctx, &rows,
		`SELECT * FROM rates WHERE plan_id = $1 ORDER BY effective_date, id`, planID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load plan rates").
			Mark(ierr.ErrDatabase)
	}

	rates := make([]*rate.Rate, 0, len(rows))
	for i := range rows {
		rt, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		rates = append(rates, rt)
	}
	return rates, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.BillingPlan) error {
	r.logger.WithContext(ctx).Debugw("updating billing plan",
		"plan_id", p.ID,
		"status", p.Status,
	)

	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)

		res, err := q.NamedExecContext(ctx, updatePlanQuery, toPlanRow(p))
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update billing plan").
				Mark(ierr.ErrDatabase)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update billing plan").
				Mark(ierr.ErrDatabase)
		}
		if affected == 0 {
			return ierr.NewError("plan not found").
				WithHintf("Plan %s was not found", p.ID).
				Mark(ierr.ErrNotFound)
		}

		// rates are append-only; ON CONFLICT skips the ones already stored
		if err := r.insertRates(ctx, q, p.Rates); err != nil {
			return err
		}
		return drainEvents(ctx, q, p.PopEvents())
	})
}

func (r *planRepository) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.BillingPlan, error) {
	query, args := buildPlanListQuery(`SELECT * FROM billing_plans`, filter, true)

	q := r.client.Querier(ctx)
	var rows []planRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing plans").
			Mark(ierr.ErrDatabase)
	}

	plans := make([]*plan.BillingPlan, 0, len(rows))
	for i := range rows {
		rates, err := r.listRates(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		plans = append(plans, rows[i].toDomain(rates))
	}
	return plans, nil
}

func (r *planRepository) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	query, args := buildPlanListQuery(`SELECT COUNT(*) FROM billing_plans`, filter, false)

	q := r.client.Querier(ctx)
	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count billing plans").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func buildPlanListQuery(base string, filter *types.PlanFilter, paginate bool) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.ActiveOnly {
			conditions = append(conditions, fmt.Sprintf("status = %s", arg(string(types.StatusActive))))
		} else if filter.QueryFilter != nil && filter.QueryFilter.Status != nil {
			conditions = append(conditions, fmt.Sprintf("status = %s", arg(string(*filter.QueryFilter.Status))))
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
				f = types.NewPlanFilter()
			}
			query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(f.GetLimit()), arg(f.GetOffset()))
		}
	}
	return query, args
}
