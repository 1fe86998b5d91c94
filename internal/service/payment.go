package service

import (
	"context"

	"github.com/netbill/netbill/internal/api/dto"
	"github.com/netbill/netbill/internal/domain/payment"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/idempotency"
)

// PaymentService records settlements against invoices
type PaymentService interface {
	// RecordPayment applies a payment to an invoice and persists both in
	// one transaction. Retried requests with the same idempotency key
	// return the original payment instead of charging twice.
	RecordPayment(ctx context.Context, req *dto.RecordPaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) RecordPayment(ctx context.Context, req *dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	amount, err := req.Money()
	if err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = s.IdempGen.GenerateKey(idempotency.ScopePayment, map[string]interface{}{
			"invoice_id": req.InvoiceID,
			"amount":     req.Amount,
			"currency":   amount.Currency,
			"method":     string(req.PaymentMethodType),
		})
	}
	if existing, err := s.PaymentRepo.GetByIdempotencyKey(ctx, key); err == nil {
		s.Logger.WithContext(ctx).Infow("payment already recorded",
			"payment_id", existing.ID,
			"idempotency_key", key,
		)
		return &dto.PaymentResponse{Payment: existing}, nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.RecordPayment(ctx, amount); err != nil {
		return nil, err
	}

	p, err := payment.NewPayment(ctx, inv.ID, amount, req.PaymentMethodType)
	if err != nil {
		return nil, err
	}
	p.IdempotencyKey = key

	// the invoice state change and the payment record land atomically;
	// the version check inside Update serializes concurrent payers
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		return s.PaymentRepo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("recorded payment",
		"payment_id", p.ID,
		"invoice_id", inv.ID,
		"amount", amount.Display(),
		"invoice_status", inv.InvoiceStatus,
	)
	return &dto.PaymentResponse{Payment: p}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentResponse{Payment: p}, nil
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error) {
	payments, err := s.PaymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, &dto.PaymentResponse{Payment: p})
	}
	return &dto.ListPaymentsResponse{Items: items, Total: len(items)}, nil
}
