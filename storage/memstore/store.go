// Package memstore is the in-memory storage adapter: a Storage that mints
// Handles guarded by two process-wide locks, a writer mutex that admits one
// read-write handle at a time and a reader lock that read-only handles
// share. The two locks never exclude each other: a read-only handle and a
// read-write handle can be open at the same time, and the read-only one
// keeps the snapshot that was committed when it was minted. It is grounded on the
// multi-reader/single-writer transaction pattern of an in-memory policy
// store, generalized from a single JSON document to named tables of
// records plus named association sets, and on a copy-on-write snapshot
// commit discipline: a read-write transaction accumulates changes into its
// own Snapshot reference and, on commit, stores it into the store's
// current-snapshot slot with a plain atomic store (no compare-and-swap;
// the writer mutex keeps every other writer out while it runs).
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jbellassai/koncentric/storage"
)

// Store is the in-memory storage.Storage implementation.
type Store struct {
	rmu     sync.RWMutex
	wmu     sync.Mutex
	current atomic.Pointer[Snapshot]
}

var _ storage.Storage = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.current.Store(emptySnapshot())
	return s
}

// CurrentDatabase returns the most recently committed snapshot.
func (s *Store) CurrentDatabase() *Snapshot {
	return s.current.Load()
}

// Reset takes the exclusive lock and replaces the current snapshot with a
// fresh empty one. Intended for test teardown between scenarios.
func (s *Store) Reset() {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.current.Store(emptySnapshot())
}

// NewReadOnlyHandle acquires the shared (reader) lock and returns a handle
// fixed to the snapshot committed at acquisition time.
func (s *Store) NewReadOnlyHandle(_ context.Context) (storage.Handle, error) {
	s.rmu.RLock()

	return &Handle{
		db:    s,
		write: false,
		snap:  s.current.Load(),
	}, nil
}

// NewReadWriteHandle acquires the exclusive (writer) lock and returns a
// handle whose working snapshot starts as the currently committed one
// (snapshots are immutable, so no copy is taken).
func (s *Store) NewReadWriteHandle(_ context.Context) (storage.Handle, error) {
	s.wmu.Lock()

	h := &Handle{db: s, write: true}
	h.snapshot.Store(s.current.Load())

	return h, nil
}
