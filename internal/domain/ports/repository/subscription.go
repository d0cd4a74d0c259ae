package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// SubscriptionRepository is the port for subscription records. Find methods
// called with a live tx take a row lock (SELECT ... FOR UPDATE) so the
// read-modify-write of a status transition is serialized per subscription.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByUserAndPlan(ctx context.Context, tx Tx, userID, planID string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, userID string) (*model.Subscription, error)

	// CountByStatus feeds the subscriptions_total gauge.
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}
