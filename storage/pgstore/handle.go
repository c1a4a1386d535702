package pgstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/storage"
)

// serializationFailure is the SQLSTATE Postgres raises when a serializable
// transaction cannot be placed in a consistent order with its concurrent
// siblings. A repository sees this wrapped as merrors.TransactionRetryError
// so WithReadWriteTransaction's retry loop can reattempt the whole block.
const serializationFailure = "40001"

// Handle is the storage.Handle wrapping a *sql.Tx. Repositories reach it
// by downcasting the ambient transaction's handle via txn.CurrentHandle.
type Handle struct {
	tx *sql.Tx
}

var _ storage.Handle = (*Handle)(nil)

// Tx returns the underlying *sql.Tx for repository queries.
func (h *Handle) Tx() *sql.Tx { return h.tx }

// Commit finalizes the transaction, translating a serialization failure
// into a TransactionRetryError rather than a bare driver error.
func (h *Handle) Commit(_ context.Context) error {
	if err := h.tx.Commit(); err != nil {
		return wrapRetryable(err)
	}

	return nil
}

// Rollback discards the transaction's changes.
func (h *Handle) Rollback(_ context.Context) error {
	if err := h.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// Release is a no-op: *sql.Tx has no separate release step beyond commit
// or rollback, both of which return the connection to the pool.
func (h *Handle) Release(_ context.Context) error {
	return nil
}

// wrapRetryable recognizes a Postgres serialization failure and wraps it
// as a merrors.TransactionRetryError; any other error passes through
// unchanged.
func wrapRetryable(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
		return merrors.NewTransactionRetry(err)
	}

	return err
}
