package service

import (
	"context"

	"github.com/netbill/netbill/internal/api/dto"
	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/tax"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// InvoiceService drives the invoice lifecycle from usage to settlement
type InvoiceService interface {
	// GenerateInvoice drafts, prices and sends an invoice for a user's
	// billing period. Re-running for the same user and period returns the
	// existing invoice instead of billing twice.
	GenerateInvoice(ctx context.Context, req *dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	VoidInvoice(ctx context.Context, id string, reason string) (*dto.InvoiceResponse, error)
	// GetUserBalance sums the outstanding balance across a user's open
	// invoices, one total per currency
	GetUserBalance(ctx context.Context, userID string) (*dto.UserBalanceResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) GenerateInvoice(ctx context.Context, req *dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	period, err := req.BillingPeriod()
	if err != nil {
		return nil, err
	}

	// idempotency: one invoice per user per period
	if existing, err := s.InvoiceRepo.GetByUserAndPeriod(ctx, req.UserID, period); err == nil {
		s.Logger.WithContext(ctx).Infow("invoice already exists for period",
			"invoice_id", existing.ID,
			"user_id", req.UserID,
			"period", period.Label(),
		)
		return dto.NewInvoiceResponse(existing), nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	u, err := s.UsageRepo.GetUsage(ctx, req.UserID, period)
	if err != nil {
		return nil, err
	}

	results, err := p.CalculateCharges(s.Registry, u, period.Start)
	if err != nil {
		return nil, err
	}

	inv, err := invoice.NewInvoice(ctx, req.UserID, p.Currency, period)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		if err := inv.AddBillingItem(ctx, result.RateType, result); err != nil {
			return nil, err
		}
	}

	taxCtx := tax.Context{Jurisdiction: s.Config.Billing.TaxJurisdiction}
	if err := inv.ApplyTax(ctx, s.TaxCalculator, taxCtx); err != nil {
		return nil, err
	}
	if err := inv.MarkAsSent(ctx); err != nil {
		return nil, err
	}

	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		// a concurrent run for the same user and period won the insert race
		if ierr.Is(err, ierr.ErrAlreadyExists) {
			return s.existingInvoiceResponse(ctx, req.UserID, period)
		}
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("generated invoice",
		"invoice_id", inv.ID,
		"user_id", inv.UserID,
		"period", period.Label(),
		"total", inv.Total.Display(),
	)
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) existingInvoiceResponse(ctx context.Context, userID string, period types.BillingPeriod) (*dto.InvoiceResponse, error) {
	existing, err := s.InvoiceRepo.GetByUserAndPeriod(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(existing), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, dto.NewInvoiceResponse(inv))
	}
	return &dto.ListInvoicesResponse{Items: items, Total: total}, nil
}

func (s *invoiceService) VoidInvoice(ctx context.Context, id string, reason string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inv.Void(ctx, reason); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("voided invoice", "invoice_id", inv.ID, "reason", reason)
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetUserBalance(ctx context.Context, userID string) (*dto.UserBalanceResponse, error) {
	if userID == "" {
		return nil, ierr.NewError("user id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}

	balances, err := s.InvoiceRepo.CalculateUserBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.UserBalanceResponse{UserID: userID, Balances: balances}, nil
}
