package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, subscription_id, amount, payment_method, status, payment_date, transaction_reference, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.Amount, &p.Method, &p.Status,
		&p.PaymentDate, &p.TransactionReference, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}

// Save upserts; payment rows are append-only apart from status and
// transaction_reference, which the upsert mirrors.
func (r *PaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, user_id, subscription_id, amount, payment_method, status, payment_date, transaction_reference, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE
  SET status                = EXCLUDED.status,
      transaction_reference = EXCLUDED.transaction_reference,
      updated_at            = EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.SubscriptionID, p.Amount, p.Method, p.Status,
		p.PaymentDate, p.TransactionReference, p.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return fmt.Errorf("save payment: %w", domain.ErrOperationFailed)
	}
	return nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q+`;`, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *PaymentRepo) FindByTransactionReference(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_reference = $1 LIMIT 1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q+`;`, ref)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *PaymentRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE subscription_id = $1
 ORDER BY id DESC
 LIMIT $2;
`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	const q = `UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", domain.ErrOperationFailed)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaymentRepo) SetTransactionReference(ctx context.Context, tx repository.Tx, id, ref string) error {
	const q = `UPDATE payments SET transaction_reference = $2, updated_at = NOW() WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, ref)
	if err != nil {
		return fmt.Errorf("set transaction reference: %w", domain.ErrOperationFailed)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatusIfUnsettled atomically transitions only payments still pending
// or awaiting confirmation; the report of whether a row moved is what guards
// the renewal side effect against double invocation.
func (r *PaymentRepo) UpdateStatusIfUnsettled(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       updated_at = NOW()
 WHERE id = $1
   AND status IN ('pending', 'awaiting_confirmation');
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}
