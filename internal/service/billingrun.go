package service

import (
	"context"
	"sync"

	"github.com/netbill/netbill/internal/api/dto"
	"github.com/sourcegraph/conc/pool"
)

// maxConcurrentBillingWorkers caps parallel invoice generation so a large
// run does not exhaust the connection pool
const maxConcurrentBillingWorkers = 8

// BillingRunService bills a batch of users for one period
type BillingRunService interface {
	// Run generates an invoice per user in parallel. Individual failures
	// are collected per user; one bad account never aborts the run.
	Run(ctx context.Context, req *dto.BillingRunRequest) (*dto.BillingRunResponse, error)
}

type billingRunService struct {
	ServiceParams
	invoiceService InvoiceService
}

func NewBillingRunService(params ServiceParams, invoiceService InvoiceService) BillingRunService {
	return &billingRunService{
		ServiceParams:  params,
		invoiceService: invoiceService,
	}
}

func (s *billingRunService) Run(ctx context.Context, req *dto.BillingRunRequest) (*dto.BillingRunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		items = make([]dto.BillingRunItem, 0, len(req.UserIDs))
	)

	p := pool.New().WithMaxGoroutines(maxConcurrentBillingWorkers)
	for _, userID := range req.UserIDs {
		userID := userID
		p.Go(func() {
			item := dto.BillingRunItem{UserID: userID}

			resp, err := s.invoiceService.GenerateInvoice(ctx, &dto.GenerateInvoiceRequest{
				UserID: userID,
				PlanID: req.PlanID,
				Period: req.Period,
			})
			if err != nil {
				s.Logger.WithContext(ctx).Errorw("billing run failed for user",
					"user_id", userID,
					"period", req.Period,
					"error", err,
				)
				item.Error = err.Error()
			} else {
				item.InvoiceID = resp.ID
			}

			mu.Lock()
			items = append(items, item)
			mu.Unlock()
		})
	}
	p.Wait()

	resp := &dto.BillingRunResponse{Items: items}
	for _, item := range items {
		if item.Error == "" {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}

	s.Logger.WithContext(ctx).Infow("billing run finished",
		"plan_id", req.PlanID,
		"period", req.Period,
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
	)
	return resp, nil
}
