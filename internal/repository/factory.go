package repository

import (
	"errors"

	"github.com/lib/pq"
	"go.uber.org/fx"
)

// Module provides the sqlx-backed repository implementations
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewInvoiceRepository,
			NewPlanRepository,
			NewPaymentRepository,
			NewUsageRepository,
		),
	)
}

// isUniqueViolation reports whether the error is a postgres unique
// constraint violation (class 23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
