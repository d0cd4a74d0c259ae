package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscribeResult reports whether the subscription already existed; an
// existing one is a soft success surfaced as an informational message, not an
// error.
type SubscribeResult struct {
	Subscription      *model.Subscription
	AlreadySubscribed bool
}

// SubscriptionUseCase implements subscription lifecycle operations.
type SubscriptionUseCase interface {
	// Subscribe is get-or-create per (user, plan); a newly created
	// subscription is activated immediately.
	Subscribe(ctx context.Context, userID, planID string, isRecurring bool) (*SubscribeResult, error)
	// GetActive returns the caller's active subscription, expiry-checked on
	// access.
	GetActive(ctx context.Context, userID string) (*model.Subscription, error)
	Get(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	// StartRenewal moves an active subscription into its renewal path: a
	// recurring one completes immediately, others wait in pending_payment.
	StartRenewal(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	// CheckExpiry compares the validity window against the clock and persists
	// the expired status. Explicit and caller-triggered; there is no timer.
	CheckExpiry(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	// Stats reports subscription counts by status and refreshes the gauge.
	Stats(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	payments repository.PaymentRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, plans: plans, payments: payments, tm: tm, log: &l}
}

func (u *subscriptionUC) Subscribe(ctx context.Context, userID, planID string, isRecurring bool) (*SubscribeResult, error) {
	plan, err := u.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	var res *SubscribeResult
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.subs.FindByUserAndPlan(ctx, tx, userID, plan.ID)
		if err == nil {
			res = &SubscribeResult{Subscription: existing, AlreadySubscribed: true}
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		sub, err := model.NewSubscription(uuid.NewString(), userID, plan.ID, isRecurring)
		if err != nil {
			return err
		}
		if err := sub.Activate(time.Now()); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		res = &SubscribeResult{Subscription: sub}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.AlreadySubscribed {
		u.log.Info().Str("user_id", userID).Str("plan_id", planID).Msg("already subscribed")
	} else {
		metrics.IncSubscriptionActivated()
		u.log.Info().Str("user_id", userID).Str("plan_id", planID).
			Str("subscription_id", res.Subscription.ID).Msg("subscription activated")
	}
	return res, nil
}

func (u *subscriptionUC) GetActive(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := u.subs.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Expiry is evaluated on access; a lapsed subscription surfaces as not found.
	checked, err := u.CheckExpiry(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if checked.Status != model.SubscriptionStatusActive {
		return nil, domain.ErrNotFound
	}
	return checked, nil
}

func (u *subscriptionUC) Get(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	sub, err := u.subs.FindByID(ctx, repository.NoTx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (u *subscriptionUC) StartRenewal(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	var out *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.UserID != userID {
			return domain.ErrNotFound
		}

		now := time.Now()
		if err := sub.Renew(now); err != nil {
			return err
		}

		if sub.IsRecurring {
			// Auto-renew: the awaiting-payment gap is skipped entirely. No real
			// charge happens here; a successful standing-order record keeps the
			// payment trail append-only.
			if err := sub.CompleteRenewal(now); err != nil {
				return err
			}
			plan, err := u.plans.FindByID(ctx, sub.PlanID)
			if err != nil {
				return err
			}
			p, err := model.NewPayment(ulid.Make().String(), sub.UserID, sub.ID, plan.Price, model.PaymentMethodStandingOrder)
			if err != nil {
				return err
			}
			if err := p.MarkSuccessful(now); err != nil {
				return err
			}
			if err := u.payments.Save(ctx, tx, p); err != nil {
				return err
			}
			metrics.IncPayment(string(p.Status), string(p.Method))
		} else {
			if err := sub.AwaitPayment(now); err != nil {
				return err
			}
		}

		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("subscription_id", out.ID).Str("status", string(out.Status)).Msg("renewal started")
	return out, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	var out *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.UserID != userID {
			return domain.ErrNotFound
		}
		if err := sub.Cancel(time.Now()); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("subscription_id", out.ID).Msg("subscription cancelled")
	return out, nil
}

func (u *subscriptionUC) CheckExpiry(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	var out *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		expired, err := sub.ExpireIfDue(time.Now())
		if err != nil {
			return fmt.Errorf("check expiry: %w", err)
		}
		if expired {
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
			metrics.IncSubscriptionExpired()
			u.log.Info().Str("subscription_id", sub.ID).Msg("subscription expired")
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *subscriptionUC) Stats(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	counts, err := u.subs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetSubscriptionsTotal(counts)
	return counts, nil
}
