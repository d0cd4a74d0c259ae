package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// Repositories accept nil for the non-transactional path; the concrete type
// is infra-defined (pgx.Tx for Postgres).
type Tx interface{}

// NoTx is the explicit "no transaction" handle for readability at call sites.
var NoTx Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via tx. Keeping the interface this small lets
// use cases stay free of storage types while repositories detect a live tx
// (and take row locks) on their side.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
