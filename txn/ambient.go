package txn

import (
	"context"

	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/storage"
)

type ambientKey struct{}

func withAmbient(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, ambientKey{}, tx)
}

// Current returns the ambient transaction installed by a with...Transaction
// helper, or nil if none is on the call stack.
func Current(ctx context.Context) *Transaction {
	tx, _ := ctx.Value(ambientKey{}).(*Transaction)
	return tx
}

// CurrentTransaction returns the ambient transaction, failing with
// ErrCurrentTransactionUnavailable if no with...Transaction block is open.
func CurrentTransaction(ctx context.Context) (*Transaction, error) {
	tx := Current(ctx)
	if tx == nil {
		return nil, merrors.ErrCurrentTransactionUnavailable
	}

	return tx, nil
}

// CurrentReadWrite returns the ambient transaction downcast to read-write,
// failing with ErrReadWriteTransactionRequired if the ambient transaction
// is read-only.
func CurrentReadWrite(ctx context.Context) (*Transaction, error) {
	tx, err := CurrentTransaction(ctx)
	if err != nil {
		return nil, err
	}

	if tx.kind != ReadWrite {
		return nil, merrors.ErrReadWriteTransactionRequired
	}

	return tx, nil
}

// WithCurrentReadWriteTransaction runs fn against the ambient read-write
// transaction, returning ErrReadWriteTransactionRequired or
// ErrCurrentTransactionUnavailable if there isn't one. Generic so every
// call site gets its natural return type, per spec.md §9's note that the
// adapter-level generic form should be adopted uniformly.
func WithCurrentReadWriteTransaction[T any](ctx context.Context, fn func(ctx context.Context, tx *Transaction) (T, error)) (T, error) {
	var zero T

	tx, err := CurrentReadWrite(ctx)
	if err != nil {
		return zero, err
	}

	return fn(ctx, tx)
}

// CurrentHandle returns the ambient transaction's handle downcast to H,
// the capability repositories use to reach their adapter's concrete type
// without depending on the transaction manager directly (spec.md §4.5's
// TransactionAware mixin).
func CurrentHandle[H storage.Handle](ctx context.Context) (H, error) {
	var zero H

	tx, err := CurrentTransaction(ctx)
	if err != nil {
		return zero, err
	}

	h, ok := tx.Handle().(H)
	if !ok {
		return zero, merrors.UnexpectedPropertyTypeError{
			Name:     "transaction handle",
			Expected: "",
			Actual:   "",
		}
	}

	return h, nil
}
