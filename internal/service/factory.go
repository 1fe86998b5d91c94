package service

import (
	"github.com/netbill/netbill/internal/billing"
	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/payment"
	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/tax"
	"github.com/netbill/netbill/internal/domain/usage"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/idempotency"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	PlanRepo    plan.Repository
	InvoiceRepo invoice.Repository
	PaymentRepo payment.Repository
	UsageRepo   usage.Repository

	// Billing machinery
	Registry      *billing.Registry
	TaxCalculator tax.Calculator
	IdempGen      *idempotency.Generator
	Cache         cache.Cache
}

// NewServiceParams assembles the shared dependency bag for fx
func NewServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	planRepo plan.Repository,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	usageRepo usage.Repository,
	registry *billing.Registry,
	taxCalculator tax.Calculator,
) ServiceParams {
	return ServiceParams{
		Logger:        log,
		Config:        cfg,
		DB:            db,
		PlanRepo:      planRepo,
		InvoiceRepo:   invoiceRepo,
		PaymentRepo:   paymentRepo,
		UsageRepo:     usageRepo,
		Registry:      registry,
		TaxCalculator: taxCalculator,
		IdempGen:      idempotency.NewGenerator(),
		Cache:         cache.NewInMemoryCache(),
	}
}

// NewRegistry builds the strategy registry from configuration
func NewRegistry(cfg *config.Configuration) *billing.Registry {
	return billing.NewRegistry(cfg.Billing.DataUnitBytes)
}

// NewTaxCalculator builds the tax calculator from configuration. A zero
// percentage means invoices carry no tax line.
func NewTaxCalculator(cfg *config.Configuration) (tax.Calculator, error) {
	percent, err := decimal.NewFromString(cfg.Billing.TaxPercent)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Tax percentage must be a decimal number").
			WithReportableDetails(map[string]any{
				"tax_percent": cfg.Billing.TaxPercent,
			}).
			Mark(ierr.ErrValidation)
	}
	if percent.IsZero() {
		return tax.NewNoopCalculator(), nil
	}
	return tax.NewPercentageCalculator(percent)
}

// Module provides all services
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewRegistry,
			NewTaxCalculator,
			NewServiceParams,
			NewPlanService,
			NewInvoiceService,
			NewPaymentService,
			NewBillingRunService,
		),
	)
}
