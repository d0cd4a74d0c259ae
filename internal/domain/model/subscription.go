package model

import (
	"fmt"
	"time"

	"subscription-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusInactive       SubscriptionStatus = "inactive"
	SubscriptionStatusActive         SubscriptionStatus = "active"
	SubscriptionStatusRenewing       SubscriptionStatus = "renewing"
	SubscriptionStatusPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionStatusCancelled      SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired        SubscriptionStatus = "expired"
)

// RenewalWindow is the validity window granted by activation and by every
// completed renewal.
const RenewalWindow = 30 * 24 * time.Hour

// SubscriptionOp names a lifecycle operation on a subscription.
type SubscriptionOp string

const (
	OpActivate        SubscriptionOp = "activate"
	OpRenew           SubscriptionOp = "renew"
	OpAwaitPayment    SubscriptionOp = "await_payment"
	OpCompleteRenewal SubscriptionOp = "complete_renewal"
	OpCancel          SubscriptionOp = "cancel"
	OpExpire          SubscriptionOp = "expire"
)

// subscriptionTransitions is the full lifecycle table. An operation is legal
// only when the current status appears among its sources; cancelled and
// expired have no outgoing edges.
var subscriptionTransitions = map[SubscriptionOp]struct {
	sources []SubscriptionStatus
	target  SubscriptionStatus
}{
	OpActivate:        {sources: []SubscriptionStatus{SubscriptionStatusInactive}, target: SubscriptionStatusActive},
	OpRenew:           {sources: []SubscriptionStatus{SubscriptionStatusActive}, target: SubscriptionStatusRenewing},
	OpAwaitPayment:    {sources: []SubscriptionStatus{SubscriptionStatusRenewing}, target: SubscriptionStatusPendingPayment},
	OpCompleteRenewal: {sources: []SubscriptionStatus{SubscriptionStatusRenewing, SubscriptionStatusPendingPayment}, target: SubscriptionStatusActive},
	OpCancel:          {sources: []SubscriptionStatus{SubscriptionStatusActive, SubscriptionStatusRenewing, SubscriptionStatusPendingPayment}, target: SubscriptionStatusCancelled},
	OpExpire:          {sources: []SubscriptionStatus{SubscriptionStatusActive}, target: SubscriptionStatusExpired},
}

// Subscription is a user's enrollment in a plan with a lifecycle state and a
// validity window. StartDate and EndDate are nil until the first activation.
type Subscription struct {
	ID          string // UUID
	UserID      string // opaque identifier from the external identity provider
	PlanID      string // UUID of plan
	Status      SubscriptionStatus
	StartDate   *time.Time
	EndDate     *time.Time
	IsRecurring bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSubscription creates a subscription in the inactive state.
func NewSubscription(id, userID, planID string, isRecurring bool) (*Subscription, error) {
	if id == "" || userID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:          id,
		UserID:      userID,
		PlanID:      planID,
		Status:      SubscriptionStatusInactive,
		IsRecurring: isRecurring,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// apply validates op against the transition table and mutates the status.
// Validation happens before any mutation is committed.
func (s *Subscription) apply(op SubscriptionOp, now time.Time) error {
	t, ok := subscriptionTransitions[op]
	if !ok {
		return domain.ErrInvalidArgument
	}
	legal := false
	for _, src := range t.sources {
		if s.Status == src {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("%w: %s from %q", domain.ErrInvalidTransition, op, s.Status)
	}
	s.Status = t.target
	s.UpdatedAt = now
	return nil
}

// Activate moves inactive -> active and opens the first validity window.
func (s *Subscription) Activate(now time.Time) error {
	if err := s.apply(OpActivate, now); err != nil {
		return err
	}
	start := now
	end := start.Add(RenewalWindow)
	s.StartDate = &start
	s.EndDate = &end
	return nil
}

// Renew moves active -> renewing. The caller decides whether the renewal
// completes immediately (recurring) or waits for a payment.
func (s *Subscription) Renew(now time.Time) error {
	return s.apply(OpRenew, now)
}

// AwaitPayment parks a renewing subscription until a payment settles.
func (s *Subscription) AwaitPayment(now time.Time) error {
	return s.apply(OpAwaitPayment, now)
}

// CompleteRenewal moves renewing/pending_payment -> active and opens a fresh
// window from now, not an extension of the previous end date.
func (s *Subscription) CompleteRenewal(now time.Time) error {
	if err := s.apply(OpCompleteRenewal, now); err != nil {
		return err
	}
	end := now.Add(RenewalWindow)
	s.EndDate = &end
	return nil
}

// Cancel is terminal; there is no reactivation path.
func (s *Subscription) Cancel(now time.Time) error {
	return s.apply(OpCancel, now)
}

// ExpireIfDue marks an active subscription expired when its window has
// passed. Expiry is caller-triggered, never a background timer. Returns true
// when the status changed.
func (s *Subscription) ExpireIfDue(now time.Time) (bool, error) {
	if s.Status != SubscriptionStatusActive {
		return false, nil
	}
	if s.EndDate == nil || now.Before(*s.EndDate) {
		return false, nil
	}
	if err := s.apply(OpExpire, now); err != nil {
		return false, err
	}
	return true, nil
}

// Renewable reports whether a payment settling now may complete a renewal.
func (s *Subscription) Renewable() bool {
	return s.Status == SubscriptionStatusRenewing || s.Status == SubscriptionStatusPendingPayment
}
