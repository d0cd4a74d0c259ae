package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
)

type PaymentMethod string

const (
	PaymentMethodMIPS            PaymentMethod = "mips"
	PaymentMethodInternetBanking PaymentMethod = "internet_banking"
	PaymentMethodJuiceMCB        PaymentMethod = "juice_mcb"
	PaymentMethodStandingOrder   PaymentMethod = "standing_order"
	PaymentMethodPayPal          PaymentMethod = "paypal"
)

// ParsePaymentMethod maps a wire value onto a known method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodMIPS, PaymentMethodInternetBanking, PaymentMethodJuiceMCB,
		PaymentMethodStandingOrder, PaymentMethodPayPal:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, s)
	}
}

// GatewayMediated reports whether the method settles through an external
// gateway round-trip rather than a trusted out-of-band channel.
func (m PaymentMethod) GatewayMediated() bool { return m == PaymentMethodPayPal }

type PaymentStatus string

const (
	PaymentStatusPending              PaymentStatus = "pending"
	PaymentStatusSuccessful           PaymentStatus = "successful"
	PaymentStatusFailed               PaymentStatus = "failed"
	PaymentStatusAwaitingConfirmation PaymentStatus = "awaiting_confirmation"
	PaymentStatusCancelled            PaymentStatus = "cancelled"
)

// Payment shares the table-driven transition discipline with Subscription;
// status is never mutated outside these operations.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:              {PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusAwaitingConfirmation, PaymentStatusCancelled},
	PaymentStatusAwaitingConfirmation: {PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusCancelled},
}

// Payment records one payment attempt against a subscription. Append-only
// history: only Status and TransactionReference ever change after creation.
type Payment struct {
	ID             string // ULID, sortable by creation time
	UserID         string
	SubscriptionID string
	Amount         decimal.Decimal
	Method         PaymentMethod
	Status         PaymentStatus
	PaymentDate    time.Time // set at creation, immutable
	// TransactionReference correlates with the gateway's identifier; populated
	// only for gateway-mediated methods once the round-trip begins.
	TransactionReference *string
	UpdatedAt            time.Time
}

// NewPayment creates a pending payment dated now.
func NewPayment(id, userID, subscriptionID string, amount decimal.Decimal, method PaymentMethod) (*Payment, error) {
	if id == "" || userID == "" || subscriptionID == "" || amount.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Payment{
		ID:             id,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Amount:         amount.Round(2),
		Method:         method,
		Status:         PaymentStatusPending,
		PaymentDate:    now,
		UpdatedAt:      now,
	}, nil
}

func (p *Payment) transition(to PaymentStatus, now time.Time) error {
	for _, legal := range paymentTransitions[p.Status] {
		if legal == to {
			p.Status = to
			p.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: payment %q -> %q", domain.ErrInvalidTransition, p.Status, to)
}

// BeginGateway records the gateway identifier and parks the payment until the
// gateway confirms or rejects it.
func (p *Payment) BeginGateway(reference string, now time.Time) error {
	if !p.Method.GatewayMediated() {
		return fmt.Errorf("%w: method %q is not gateway mediated", domain.ErrInvalidArgument, p.Method)
	}
	if err := p.transition(PaymentStatusAwaitingConfirmation, now); err != nil {
		return err
	}
	p.TransactionReference = &reference
	return nil
}

func (p *Payment) MarkSuccessful(now time.Time) error {
	return p.transition(PaymentStatusSuccessful, now)
}

func (p *Payment) MarkFailed(now time.Time) error {
	return p.transition(PaymentStatusFailed, now)
}

func (p *Payment) MarkCancelled(now time.Time) error {
	return p.transition(PaymentStatusCancelled, now)
}

// Settled reports whether the payment reached a terminal status.
func (p *Payment) Settled() bool {
	switch p.Status {
	case PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}
