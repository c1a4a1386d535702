// Package txn implements the transaction abstraction: read-only and
// read-write Transaction objects bound to a concrete storage.Handle,
// ambient-context propagation so repositories reached deep inside a
// with...Transaction block can find the active transaction, and the
// control-flow helpers that run a block with automatic commit, rollback,
// release, and — for the read-write variant — retry.
package txn

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/jbellassai/koncentric/events"
	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/mtrace"
	"github.com/jbellassai/koncentric/storage"
)

// Kind tags whether a Transaction is read-only or read-write.
type Kind int

const (
	ReadOnly Kind = iota
	ReadWrite
)

func (k Kind) String() string {
	if k == ReadWrite {
		return "read-write"
	}

	return "read-only"
}

// Transaction wraps a storage.Handle with the state machine Open ->
// (Committed | RolledBack) -> Released. Release is idempotent: calling it
// on an already-released transaction is a no-op.
type Transaction struct {
	kind     Kind
	handle   storage.Handle
	events   *events.Manager
	released atomic.Bool
}

// Kind reports whether this is a read-only or read-write transaction.
func (t *Transaction) Kind() Kind { return t.kind }

// Handle returns the adapter-specific handle this transaction wraps.
// Repositories downcast it to their adapter's concrete type; prefer
// CurrentHandle from call sites that only have a context.
func (t *Transaction) Handle() storage.Handle { return t.handle }

// Commit finalizes the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	ctx, span := mtrace.FromContext(ctx).Start(ctx, "txn.Commit")
	defer span.End()

	return t.handle.Commit(ctx)
}

// Rollback discards the transaction's changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	ctx, span := mtrace.FromContext(ctx).Start(ctx, "txn.Rollback")
	defer span.End()

	return t.handle.Rollback(ctx)
}

// Release performs idempotent final cleanup. A second call, whether or not
// the first succeeded, is a no-op.
func (t *Transaction) Release(ctx context.Context) error {
	if !t.released.CompareAndSwap(false, true) {
		return nil
	}

	ctx, span := mtrace.FromContext(ctx).Start(ctx, "txn.Release")
	defer span.End()

	return t.handle.Release(ctx)
}

// Notify forwards event to the subscription manager for dispatch within
// this transaction. It is only valid on a read-write transaction.
func (t *Transaction) Notify(ctx context.Context, event events.Event, eventType reflect.Type) error {
	if t.kind != ReadWrite {
		return merrors.ErrReadWriteTransactionRequired
	}

	if t.events == nil {
		return nil
	}

	return t.events.Publish(ctx, t, event, eventType)
}
