package memstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_PutIsCopyOnWrite(t *testing.T) {
	s1 := emptySnapshot()
	s2 := s1.Put("users", "u1", "alice")

	_, ok := s1.Get("users", "u1")
	assert.False(t, ok, "original snapshot must be untouched")

	v, ok := s2.Get("users", "u1")
	require.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestSnapshot_Associations(t *testing.T) {
	s := emptySnapshot().Associate("membership", "u1", "g1").Associate("membership", "u1", "g2")

	assert.ElementsMatch(t, []string{"g1", "g2"}, s.RightsOf("membership", "u1"))
	assert.ElementsMatch(t, []string{"u1"}, s.LeftsOf("membership", "g1"))

	s2 := s.Disassociate("membership", "u1", "g1")
	assert.ElementsMatch(t, []string{"g2"}, s2.RightsOf("membership", "u1"))
	assert.ElementsMatch(t, []string{"g1", "g2"}, s.RightsOf("membership", "u1"), "disassociate must not mutate the source snapshot")
}

func TestStore_ReadWriteCommitPublishesSnapshot(t *testing.T) {
	store := New()
	ctx := context.Background()

	h, err := store.NewReadWriteHandle(ctx)
	require.NoError(t, err)

	handle := h.(*Handle)
	handle.Update(func(s *Snapshot) *Snapshot {
		return s.Put("users", "u1", "alice")
	})

	require.NoError(t, handle.Commit(ctx))
	require.NoError(t, handle.Release(ctx))

	v, ok := store.CurrentDatabase().Get("users", "u1")
	require.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestStore_RollbackDiscardsWorkingSnapshot(t *testing.T) {
	store := New()
	ctx := context.Background()

	h, err := store.NewReadWriteHandle(ctx)
	require.NoError(t, err)

	handle := h.(*Handle)
	handle.Update(func(s *Snapshot) *Snapshot {
		return s.Put("users", "u1", "alice")
	})

	require.NoError(t, handle.Rollback(ctx))

	_, ok := store.CurrentDatabase().Get("users", "u1")
	assert.False(t, ok)
}

func TestStore_ReadOnlyHandleIsFixedAtAcquisition(t *testing.T) {
	store := New()
	ctx := context.Background()

	ro, err := store.NewReadOnlyHandle(ctx)
	require.NoError(t, err)

	rw, err := store.NewReadWriteHandle(ctx)
	require.NoError(t, err)
	rw.(*Handle).Update(func(s *Snapshot) *Snapshot { return s.Put("users", "u1", "alice") })
	require.NoError(t, rw.(*Handle).Commit(ctx))
	_ = ro // read handle minted before the write transaction even started

	handle := ro.(*Handle)
	_, ok := handle.Snapshot().Get("users", "u1")
	assert.False(t, ok)

	require.NoError(t, handle.Commit(ctx))
}

func TestStore_WriterExcludesWriter(t *testing.T) {
	store := New()
	ctx := context.Background()

	var order []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			defer wg.Done()

			h, err := store.NewReadWriteHandle(ctx)
			require.NoError(t, err)

			mu.Lock()
			order = append(order, "start")
			mu.Unlock()

			mu.Lock()
			order = append(order, "end")
			mu.Unlock()

			_ = h.Commit(ctx)
		}(i)
	}
	wg.Wait()

	require.Len(t, order, 4)
	assert.Equal(t, "start", order[0])
	assert.Equal(t, "end", order[1], "second writer must not start until the first committed")
}

func TestStore_Reset(t *testing.T) {
	store := New()
	ctx := context.Background()

	h, _ := store.NewReadWriteHandle(ctx)
	handle := h.(*Handle)
	handle.Update(func(s *Snapshot) *Snapshot { return s.Put("users", "u1", "alice") })
	require.NoError(t, handle.Commit(ctx))

	store.Reset()

	_, ok := store.CurrentDatabase().Get("users", "u1")
	assert.False(t, ok)
}
