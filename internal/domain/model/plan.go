package model

import (
	"time"

	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
)

// Plan is a purchasable subscription offering. Reference data: created and
// edited by an administrator, never deleted while subscriptions point at it.
type Plan struct {
	ID          string
	Name        string
	Price       decimal.Decimal // fixed-point, 2 fractional digits
	Description string
	CreatedAt   time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan. Price is normalized to two
// fractional digits so equality checks against stored NUMERIC values hold.
func NewPlan(id, name string, price decimal.Decimal, description string) (*Plan, error) {
	if id == "" || name == "" || price.IsNegative() || price.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:          id,
		Name:        name,
		Price:       price.Round(2),
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}
