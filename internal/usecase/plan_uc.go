package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the plan catalog (administrator-maintained reference data).
type PlanUseCase interface {
	Create(ctx context.Context, name string, price decimal.Decimal, description string) (*model.Plan, error)
	Update(ctx context.Context, id, name string, price decimal.Decimal, description string) (*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
	Delete(ctx context.Context, id string) error
}

type planUC struct {
	plans repository.PlanRepository
}

func NewPlanUseCase(plans repository.PlanRepository) *planUC {
	return &planUC{plans: plans}
}

func (u *planUC) Create(ctx context.Context, name string, price decimal.Decimal, description string) (*model.Plan, error) {
	p, err := model.NewPlan(uuid.NewString(), name, price, description)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *planUC) Update(ctx context.Context, id, name string, price decimal.Decimal, description string) (*model.Plan, error) {
	p, err := u.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		p.Name = name
	}
	if !price.IsZero() {
		p.Price = price.Round(2)
	}
	if description != "" {
		p.Description = description
	}
	if err := u.plans.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	return u.plans.FindByID(ctx, id)
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListAll(ctx)
}

func (u *planUC) Delete(ctx context.Context, id string) error {
	return u.plans.Delete(ctx, id)
}
