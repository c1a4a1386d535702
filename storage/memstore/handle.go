package memstore

import (
	"context"
	"sync/atomic"

	"github.com/jbellassai/koncentric/storage"
)

// Handle is the storage.Handle the in-memory adapter hands to a
// txn.Transaction. A read-only handle is fixed to the snapshot committed
// at acquisition time; a read-write handle carries its own working
// snapshot, mutated via Update, which Commit writes into the store's
// current slot with a plain atomic store, not a compare-and-swap.
type Handle struct {
	db       *Store
	write    bool
	snap     *Snapshot // read-only: fixed view
	snapshot atomic.Pointer[Snapshot]
	released atomic.Bool
}

var _ storage.Handle = (*Handle)(nil)

// Snapshot returns the handle's current view: the fixed snapshot for a
// read-only handle, or the working snapshot for a read-write handle.
func (h *Handle) Snapshot() *Snapshot {
	if !h.write {
		return h.snap
	}

	return h.snapshot.Load()
}

// Update applies mutate to the working snapshot and stores the result.
// Valid only on a read-write handle; repositories reach it by downcasting
// the ambient transaction's handle to *memstore.Handle.
func (h *Handle) Update(mutate func(*Snapshot) *Snapshot) {
	for {
		old := h.snapshot.Load()
		next := mutate(old)
		if h.snapshot.CompareAndSwap(old, next) {
			return
		}
	}
}

// Commit publishes the working snapshot, for a read-write handle, then
// releases the lock the handle was minted with. A read-only handle has
// nothing to publish.
func (h *Handle) Commit(_ context.Context) error {
	if h.write {
		h.db.current.Store(h.snapshot.Load())
		h.db.wmu.Unlock()
	} else {
		h.db.rmu.RUnlock()
	}

	return nil
}

// Rollback discards the working snapshot, for a read-write handle, and
// releases the lock. A read-only handle never accumulates changes, so
// rollback and commit release the same lock the same way.
func (h *Handle) Rollback(_ context.Context) error {
	if h.write {
		h.db.wmu.Unlock()
	} else {
		h.db.rmu.RUnlock()
	}

	return nil
}

// Release is a no-op: the exclusivity this handle held was already
// released by Commit or Rollback, whichever ran first. It exists to
// satisfy storage.Handle; txn.Transaction.Release's CompareAndSwap already
// guarantees it is called at most once per handle.
func (h *Handle) Release(_ context.Context) error {
	return nil
}
