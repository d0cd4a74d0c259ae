package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// PaymentRepository is the port for the append-only payment history.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByTransactionReference(ctx context.Context, tx Tx, ref string) (*model.Payment, error)
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string, limit int) ([]*model.Payment, error)

	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus) error
	SetTransactionReference(ctx context.Context, tx Tx, id, ref string) error

	// UpdateStatusIfUnsettled atomically moves the payment to status only when
	// it is still pending or awaiting confirmation, and reports whether a row
	// actually transitioned. This is the idempotency guard for settlement side
	// effects.
	UpdateStatusIfUnsettled(ctx context.Context, tx Tx, id string, status model.PaymentStatus) (bool, error)
}
