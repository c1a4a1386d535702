package txn

import (
	"context"
	"errors"

	"github.com/jbellassai/koncentric/events"
	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/mlog"
	"github.com/jbellassai/koncentric/storage"
)

// Manager is the factory that produces transactions bound to a concrete
// storage adapter and runs a caller's block inside one with commit,
// rollback, release, ambient-context installation, and retry.
type Manager struct {
	storage storage.Storage
	events  *events.Manager
}

// NewManager binds a Manager to a storage adapter. events may be nil for a
// core that never publishes (read-only workloads); a read-write transaction
// minted by a Manager with a nil events.Manager dispatches nothing: its
// Notify returns nil without calling any listener.
func NewManager(store storage.Storage, eventManager *events.Manager) *Manager {
	return &Manager{storage: store, events: eventManager}
}

// NewReadOnlyTransaction acquires resources and begins an isolated read
// view, without installing it as the ambient transaction. Most callers want
// WithReadOnlyTransaction instead.
func (m *Manager) NewReadOnlyTransaction(ctx context.Context) (*Transaction, error) {
	handle, err := m.storage.NewReadOnlyHandle(ctx)
	if err != nil {
		return nil, err
	}

	return &Transaction{kind: ReadOnly, handle: handle}, nil
}

// NewReadWriteTransaction acquires resources and begins a serializable
// write view, without installing it as the ambient transaction. Most
// callers want WithReadWriteTransaction instead.
func (m *Manager) NewReadWriteTransaction(ctx context.Context) (*Transaction, error) {
	handle, err := m.storage.NewReadWriteHandle(ctx)
	if err != nil {
		return nil, err
	}

	return &Transaction{kind: ReadWrite, handle: handle, events: m.events}, nil
}

// WithReadOnlyTransaction runs fn inside a fresh read-only transaction
// installed as the ambient transaction for fn's dynamic extent. It fails
// with ErrConcurrentTransaction if a transaction is already ambient. commit
// follows a successful return; rollback follows an error or a panic;
// release always runs exactly once, even across a panic.
func WithReadOnlyTransaction[T any](ctx context.Context, m *Manager, fn func(ctx context.Context, tx *Transaction) (T, error)) (T, error) {
	var zero T

	if Current(ctx) != nil {
		return zero, merrors.ErrConcurrentTransaction
	}

	tx, err := m.NewReadOnlyTransaction(ctx)
	if err != nil {
		return zero, err
	}

	return runBlock(ctx, tx, fn)
}

// WithReadWriteTransaction runs fn inside a fresh read-write transaction,
// retrying up to retries additional times when fn raises a
// TransactionRetryError. retries must be >= 0. When the budget is
// exhausted the last retry's cause is returned in place of the retry
// signal.
func WithReadWriteTransaction[T any](ctx context.Context, m *Manager, retries int, fn func(ctx context.Context, tx *Transaction) (T, error)) (T, error) {
	if retries < 0 {
		panic("txn: retries must be >= 0")
	}

	var (
		zero      T
		lastCause error
	)

	for attempt := 0; attempt <= retries; attempt++ {
		if Current(ctx) != nil {
			return zero, merrors.ErrConcurrentTransaction
		}

		tx, err := m.NewReadWriteTransaction(ctx)
		if err != nil {
			return zero, err
		}

		result, err := runBlock(ctx, tx, fn)

		var retryErr merrors.TransactionRetryError
		if errors.As(err, &retryErr) {
			lastCause = retryErr.Cause
			continue
		}

		return result, err
	}

	return zero, lastCause
}

// runBlock is the shared commit/rollback/release machinery for both
// transaction kinds: install the ambient slot, run fn, commit on success,
// rollback on error or panic, always release exactly once.
func runBlock[T any](ctx context.Context, tx *Transaction, fn func(ctx context.Context, tx *Transaction) (T, error)) (result T, err error) {
	ctx = withAmbient(ctx, tx)

	// Registered first so it runs last: on the normal path this performs
	// the one release call; on a panic, Release is already idempotent-true
	// by the time this runs, since the recover handler below released
	// after rolling back.
	defer releaseQuietly(ctx, tx)

	// Registered second so it runs first: rollback must happen before
	// release on a panicking exit, not after.
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			releaseQuietly(ctx, tx)
			panic(r)
		}
	}()

	result, err = fn(ctx, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return result, err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		_ = tx.Rollback(ctx)
		return result, commitErr
	}

	return result, nil
}

// releaseQuietly runs Release and logs, rather than returns, any error: a
// release failure must never mask an in-flight result or error.
func releaseQuietly(ctx context.Context, tx *Transaction) {
	if err := tx.Release(ctx); err != nil {
		mlog.FromContext(ctx).Errorf("txn: release failed: %v", err)
	}
}
