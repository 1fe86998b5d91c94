package service

import (
	"context"

	"github.com/netbill/netbill/internal/api/dto"
	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/types"
)

// PlanService manages billing plans and their rates
type PlanService interface {
	CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	ListPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error)
	AddRate(ctx context.Context, planID string, req *dto.AddRateRequest) (*dto.PlanResponse, error)
	ActivatePlan(ctx context.Context, id string) error
	DeactivatePlan(ctx context.Context, id string) error
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := plan.NewBillingPlan(ctx, req.Name, req.Description, req.Currency)
	if err != nil {
		return nil, err
	}

	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created billing plan",
		"plan_id", p.ID,
		"name", p.Name,
	)
	return &dto.PlanResponse{BillingPlan: p}, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	key := cache.Key(cache.PrefixPlan, id)
	if cached, found := s.Cache.Get(ctx, key); found {
		if p, ok := cached.(*plan.BillingPlan); ok {
			return &dto.PlanResponse{BillingPlan: p}, nil
		}
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, p, cache.DefaultExpiration)
	return &dto.PlanResponse{BillingPlan: p}, nil
}

func (s *planService) ListPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error) {
	if filter == nil {
		filter = types.NewPlanFilter()
	}

	plans, err := s.PlanRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.PlanRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, &dto.PlanResponse{BillingPlan: p})
	}
	return &dto.ListPlansResponse{Items: items, Total: total}, nil
}

func (s *planService) AddRate(ctx context.Context, planID string, req *dto.AddRateRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	r, err := req.ToRate(ctx, p.Currency)
	if err != nil {
		return nil, err
	}

	// the strategy owns the configuration rules for its rate type
	strategy, err := s.Registry.Get(r.RateType)
	if err != nil {
		return nil, err
	}
	if err := strategy.ValidateRate(r); err != nil {
		return nil, err
	}

	if err := p.AddRate(r); err != nil {
		return nil, err
	}
	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cache.Key(cache.PrefixPlan, planID))
	s.Logger.WithContext(ctx).Infow("added rate to plan",
		"plan_id", planID,
		"rate_id", r.ID,
		"rate_type", r.RateType,
	)
	return &dto.PlanResponse{BillingPlan: p}, nil
}

func (s *planService) ActivatePlan(ctx context.Context, id string) error {
	return s.setPlanStatus(ctx, id, true)
}

func (s *planService) DeactivatePlan(ctx context.Context, id string) error {
	return s.setPlanStatus(ctx, id, false)
}

func (s *planService) setPlanStatus(ctx context.Context, id string, active bool) error {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	if active {
		p.Activate(ctx)
	} else {
		p.Deactivate(ctx)
	}

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return err
	}
	s.Cache.Delete(ctx, cache.Key(cache.PrefixPlan, id))
	return nil
}
