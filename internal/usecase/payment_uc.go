package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Locker is the per-subscription mutual-exclusion discipline: two concurrent
// settlements of the same subscription must not both complete a renewal.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// InitiateResult carries the created payment; ApprovalURL is non-empty only
// for gateway-mediated methods.
type InitiateResult struct {
	Payment     *model.Payment
	ApprovalURL string
}

// BulkConfirmResult summarizes an administrative bulk confirmation batch.
type BulkConfirmResult struct {
	Confirmed   int // payment settled and subscription renewal completed
	Skipped     int // payment settled, subscription state had moved on
	AlreadyDone int // payment was already settled; harmless repeat
	Failed      map[string]string
}

// PaymentUseCase implements payment attempts, the method policy table, the
// gateway round-trip and the administrative bulk confirmation.
type PaymentUseCase interface {
	// Initiate creates a payment attempt against a subscription. Assumed-success
	// methods are processed inline; gateway-mediated methods return an approval
	// redirect URL; manually confirmed methods stay pending.
	Initiate(ctx context.Context, userID, subscriptionID string, method model.PaymentMethod) (*InitiateResult, error)
	// Process applies the method policy to a pending payment.
	Process(ctx context.Context, paymentID string) (*model.Payment, error)
	// ExecuteGateway settles a gateway payment after the payer approved;
	// gatewayID arrives in the gateway's return redirect.
	ExecuteGateway(ctx context.Context, gatewayID, payerID string) (*model.Payment, error)
	// CancelGateway voids a gateway payment after the payer aborted.
	CancelGateway(ctx context.Context, gatewayID string) (*model.Payment, error)
	// BulkConfirm marks each payment successful and completes renewals for the
	// subscriptions still waiting on one. Per-payment failures never abort the
	// batch.
	BulkConfirm(ctx context.Context, paymentIDs []string) (*BulkConfirmResult, error)
	// History lists recent payments for a subscription the user owns.
	History(ctx context.Context, userID, subscriptionID string, limit int) ([]*model.Payment, error)
}

// PaymentOptions is wiring configuration injected from config; the gateway
// never reads ambient globals.
type PaymentOptions struct {
	Currency  string
	ReturnURL string
	CancelURL string
	LockTTL   time.Duration
}

type paymentUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	locker   Locker
	opts     PaymentOptions
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	locker Locker,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Second
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments, subs: subs, plans: plans,
		gateway: gateway, tm: tm, locker: locker, opts: opts, log: &l,
	}
}

func subscriptionLockKey(subID string) string { return "billing:sub:" + subID }

func (u *paymentUC) Initiate(ctx context.Context, userID, subscriptionID string, method model.PaymentMethod) (*InitiateResult, error) {
	sub, err := u.subs.FindByID(ctx, repository.NoTx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotFound
	}
	plan, err := u.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	p, err := model.NewPayment(ulid.Make().String(), userID, sub.ID, plan.Price, method)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, repository.NoTx, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("payment_id", p.ID).Str("method", string(method)).
		Str("subscription_id", sub.ID).Msg("payment attempt created")

	if method.GatewayMediated() {
		return u.initiateGateway(ctx, p, plan)
	}

	processed, err := u.Process(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{Payment: processed}, nil
}

func (u *paymentUC) initiateGateway(ctx context.Context, p *model.Payment, plan *model.Plan) (*InitiateResult, error) {
	created, err := u.gateway.CreatePayment(ctx, p.Amount, u.opts.Currency,
		fmt.Sprintf("%s subscription renewal", plan.Name), u.opts.ReturnURL, u.opts.CancelURL)
	if err != nil {
		now := time.Now()
		if markErr := p.MarkFailed(now); markErr == nil {
			_ = u.payments.UpdateStatus(ctx, repository.NoTx, p.ID, p.Status)
		}
		metrics.IncPayment(string(model.PaymentStatusFailed), string(p.Method))
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	if err := p.BeginGateway(created.GatewayID, time.Now()); err != nil {
		return nil, err
	}
	if err := u.payments.SetTransactionReference(ctx, repository.NoTx, p.ID, created.GatewayID); err != nil {
		return nil, err
	}
	if err := u.payments.UpdateStatus(ctx, repository.NoTx, p.ID, p.Status); err != nil {
		return nil, err
	}
	u.log.Info().Str("payment_id", p.ID).Str("gateway_id", created.GatewayID).Msg("gateway payment initiated")
	return &InitiateResult{Payment: p, ApprovalURL: created.ApprovalURL}, nil
}

// Process applies the policy table. mips and internet_banking are trusted
// out-of-band channels with assumed success and no retry or failure
// classification; juice_mcb and standing_order wait for manual admin
// confirmation; paypal settles through the gateway round-trip instead.
func (u *paymentUC) Process(ctx context.Context, paymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTx, paymentID)
	if err != nil {
		return nil, err
	}

	switch p.Method {
	case model.PaymentMethodMIPS, model.PaymentMethodInternetBanking:
		settled, _, err := u.settle(ctx, p, true)
		return settled, err
	case model.PaymentMethodJuiceMCB, model.PaymentMethodStandingOrder:
		// Stays pending until the admin bulk confirmation.
		return p, nil
	case model.PaymentMethodPayPal:
		u.log.Debug().Str("payment_id", p.ID).Msg("gateway-mediated payment; settlement deferred to execute callback")
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, p.Method)
	}
}

// settle marks the payment successful and completes the subscription renewal
// exactly once. The compare-and-set on payment status plus the per-subscription
// lock and the row lock inside the transaction make a repeated settlement a
// no-op rather than a double renewal. With strict set, a subscription that is
// not waiting on a renewal fails the settlement; otherwise it is skipped.
func (u *paymentUC) settle(ctx context.Context, p *model.Payment, strict bool) (*model.Payment, bool, error) {
	token, err := u.locker.TryLock(ctx, subscriptionLockKey(p.SubscriptionID), u.opts.LockTTL)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = u.locker.Unlock(ctx, subscriptionLockKey(p.SubscriptionID), token) }()

	renewed := false
	transitioned := false
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		moved, err := u.payments.UpdateStatusIfUnsettled(ctx, tx, p.ID, model.PaymentStatusSuccessful)
		if err != nil {
			return err
		}
		if !moved {
			// Already settled by a concurrent request or an earlier call.
			return nil
		}
		transitioned = true

		sub, err := u.subs.FindByID(ctx, tx, p.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Renewable() {
			if err := sub.CompleteRenewal(time.Now()); err != nil {
				return err
			}
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
			renewed = true
			return nil
		}
		if strict {
			return fmt.Errorf("%w: complete_renewal from %q", domain.ErrInvalidTransition, sub.Status)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	fresh, err := u.payments.FindByID(ctx, repository.NoTx, p.ID)
	if err != nil {
		return nil, renewed, err
	}
	if transitioned {
		metrics.IncPayment(string(fresh.Status), string(fresh.Method))
		u.log.Info().Str("payment_id", fresh.ID).Bool("renewed", renewed).Msg("payment settled")
	}
	return fresh, renewed, nil
}

func (u *paymentUC) ExecuteGateway(ctx context.Context, gatewayID, payerID string) (*model.Payment, error) {
	p, err := u.payments.FindByTransactionReference(ctx, repository.NoTx, gatewayID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentStatusSuccessful {
		// Gateway redirected twice; nothing left to do.
		return p, nil
	}

	if err := u.gateway.ExecutePayment(ctx, gatewayID, payerID); err != nil {
		// Surfaced, never retried; the payment stays unresolved for a later
		// execute or an admin decision.
		u.log.Warn().Str("payment_id", p.ID).Str("gateway_id", gatewayID).Err(err).Msg("gateway execute failed")
		return p, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	settled, _, err := u.settle(ctx, p, false)
	return settled, err
}

func (u *paymentUC) CancelGateway(ctx context.Context, gatewayID string) (*model.Payment, error) {
	p, err := u.payments.FindByTransactionReference(ctx, repository.NoTx, gatewayID)
	if err != nil {
		return nil, err
	}
	moved, err := u.payments.UpdateStatusIfUnsettled(ctx, repository.NoTx, p.ID, model.PaymentStatusCancelled)
	if err != nil {
		return nil, err
	}
	if moved {
		p.Status = model.PaymentStatusCancelled
		metrics.IncPayment(string(p.Status), string(p.Method))
		u.log.Info().Str("payment_id", p.ID).Msg("gateway payment cancelled by payer")
	}
	return p, nil
}

func (u *paymentUC) BulkConfirm(ctx context.Context, paymentIDs []string) (*BulkConfirmResult, error) {
	res := &BulkConfirmResult{Failed: map[string]string{}}
	for _, id := range paymentIDs {
		p, err := u.payments.FindByID(ctx, repository.NoTx, id)
		if err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		if p.Settled() {
			res.AlreadyDone++
			continue
		}
		_, renewed, err := u.settle(ctx, p, false)
		if err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		if renewed {
			res.Confirmed++
		} else {
			// Subscription state moved on since the payment was queued; the
			// stale entry is skipped, not failed.
			res.Skipped++
		}
	}
	u.log.Info().Int("confirmed", res.Confirmed).Int("skipped", res.Skipped).
		Int("already_done", res.AlreadyDone).Int("failed", len(res.Failed)).Msg("bulk confirmation finished")
	return res, nil
}

func (u *paymentUC) History(ctx context.Context, userID, subscriptionID string, limit int) ([]*model.Payment, error) {
	sub, err := u.subs.FindByID(ctx, repository.NoTx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return u.payments.ListBySubscription(ctx, repository.NoTx, subscriptionID, limit)
}
