package memrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbellassai/koncentric/directory"
	"github.com/jbellassai/koncentric/directory/memrepo"
	"github.com/jbellassai/koncentric/events"
	"github.com/jbellassai/koncentric/lazyrefresh"
	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/storage/memstore"
	"github.com/jbellassai/koncentric/txn"
)

func newHarness() (*txn.Manager, *memrepo.UserRepository, *memrepo.GroupRepository) {
	store := memstore.New()
	mgr := events.NewManager()
	mgr.Subscribe(memrepo.NewMembershipListener())

	return txn.NewManager(store, mgr), memrepo.NewUserRepository(), memrepo.NewGroupRepository()
}

// Scenario 1: User CRUD.
func TestScenario_UserCRUD(t *testing.T) {
	tm, users, _ := newHarness()
	ctx := context.Background()

	id, err := txn.WithReadWriteTransaction(ctx, tm, 0, func(ctx context.Context, tx *txn.Transaction) (string, error) {
		u, err := users.Create(ctx, directory.NewUserSpec("j@e.com", "John", "Bell"))
		require.NoError(t, err)
		return u.ID(), nil
	})
	require.NoError(t, err)

	_, err = txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u, err := users.Get(ctx, id)
		require.NoError(t, err)

		email, _ := u.Email()
		first, _ := u.FirstName()
		last, _ := u.LastName()
		status, _ := u.Status()

		assert.Equal(t, "j@e.com", email)
		assert.Equal(t, "John", first)
		assert.Equal(t, "Bell", last)
		assert.Equal(t, directory.StatusEnabled, status)

		return struct{}{}, nil
	})
	require.NoError(t, err)

	_, err = txn.WithReadWriteTransaction(ctx, tm, 0, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u, err := users.Get(ctx, id)
		require.NoError(t, err)

		return struct{}{}, u.UpdateName(ctx, "JOHN", "BELL")
	})
	require.NoError(t, err)

	_, err = txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u, err := users.Get(ctx, id)
		require.NoError(t, err)

		first, _ := u.FirstName()
		last, _ := u.LastName()
		status, _ := u.Status()

		assert.Equal(t, "JOHN", first)
		assert.Equal(t, "BELL", last)
		assert.Equal(t, directory.StatusEnabled, status)

		return struct{}{}, nil
	})
	require.NoError(t, err)
}

// Scenario 2: Group CRUD.
func TestScenario_GroupCRUD(t *testing.T) {
	tm, _, groups := newHarness()
	ctx := context.Background()

	id, err := txn.WithReadWriteTransaction(ctx, tm, 0, func(ctx context.Context, tx *txn.Transaction) (string, error) {
		g, err := groups.Create(ctx, directory.NewGroupSpec("group1"))
		require.NoError(t, err)
		return g.ID(), nil
	})
	require.NoError(t, err)

	_, err = txn.WithReadWriteTransaction(ctx, tm, 0, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		g, err := groups.Get(ctx, id)
		require.NoError(t, err)

		return struct{}{}, g.UpdateName(ctx, "GROUP1")
	})
	require.NoError(t, err)

	_, err = txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		g, err := groups.Get(ctx, id)
		require.NoError(t, err)

		name, _ := g.Name()
		assert.Equal(t, "GROUP1", name)

		return struct{}{}, nil
	})
	require.NoError(t, err)
}

// Scenario 3: Group membership & lazy invalidation.
func TestScenario_MembershipAndLazyInvalidation(t *testing.T) {
	tm, users, groups := newHarness()
	ctx := context.Background()

	var userID, groupID string

	_, err := txn.WithReadWriteTransaction(ctx, tm, 0, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u, err := users.Create(ctx, directory.NewUserSpec("u@e.com", "U", "Ser"))
		require.NoError(t, err)
		userID = u.ID()

		g, err := groups.Create(ctx, directory.NewGroupSpec("g1"))
		require.NoError(t, err)
		groupID = g.ID()

		uGroups, err := u.Groups(ctx)
		require.NoError(t, err)
		assert.Empty(t, uGroups)

		gMembers, err := g.Members(ctx)
		require.NoError(t, err)
		assert.Empty(t, gMembers)

		require.NoError(t, users.AddMembershipTo(ctx, u, g))

		uGroups, err = u.Groups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{groupID}, uGroups)

		gMembers, err = g.Members(ctx)
		require.NoError(t, err)
		assert.Empty(t, gMembers, "group side was not invalidated by the user-side mutation")

		err = lazyrefresh.Run(ctx, func(ctx context.Context) error {
			gMembers, err := g.Members(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{userID}, gMembers)
			return nil
		})
		require.NoError(t, err)

		return struct{}{}, nil
	})
	require.NoError(t, err)

	_, err = txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u, err := users.Get(ctx, userID)
		require.NoError(t, err)
		g, err := groups.Get(ctx, groupID)
		require.NoError(t, err)

		uGroups, err := u.Groups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{groupID}, uGroups)

		gMembers, err := g.Members(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{userID}, gMembers)

		return struct{}{}, nil
	})
	require.NoError(t, err)
}

// Scenario 4: Lazy access outside a transaction.
func TestScenario_LazyAccessOutsideTransaction(t *testing.T) {
	tm, _, groups := newHarness()
	ctx := context.Background()

	var groupID string
	_, err := txn.WithReadWriteTransaction(ctx, tm, 0, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		g, err := groups.Create(ctx, directory.NewGroupSpec("g1"))
		require.NoError(t, err)
		groupID = g.ID()
		return struct{}{}, nil
	})
	require.NoError(t, err)

	var group *directory.Group
	_, err = txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		g, err := groups.Get(ctx, groupID)
		require.NoError(t, err)
		group = g
		return struct{}{}, nil
	})
	require.NoError(t, err)

	_, err = group.Members(ctx)
	assert.ErrorIs(t, err, merrors.ErrCurrentTransactionUnavailable)

	_, err = txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		members, err := group.Members(ctx)
		require.NoError(t, err)
		assert.Empty(t, members)
		return struct{}{}, nil
	})
	require.NoError(t, err)

	members, err := group.Members(ctx)
	require.NoError(t, err)
	assert.Empty(t, members, "memoized from the prior resolution")

	err = lazyrefresh.Run(ctx, func(ctx context.Context) error {
		_, err := group.Members(ctx)
		return err
	})
	assert.ErrorIs(t, err, merrors.ErrCurrentTransactionUnavailable)
}

// Scenario 5: Retry.
func TestScenario_Retry(t *testing.T) {
	tm, _, _ := newHarness()
	ctx := context.Background()

	attempts := 0
	_, err := txn.WithReadWriteTransaction(ctx, tm, 5, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		attempts++
		if attempts < 3 {
			return struct{}{}, merrors.NewTransactionRetry(errors.New("conflict"))
		}
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	cause := errors.New("conflict")
	_, err = txn.WithReadWriteTransaction(ctx, tm, 1, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		attempts++
		return struct{}{}, merrors.NewTransactionRetry(cause)
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, cause, err, "retry budget exhaustion re-throws the cause, not the retry signal")
}

// Scenario 6: Concurrent-tx guard.
func TestScenario_ConcurrentTransactionGuard(t *testing.T) {
	tm, _, _ := newHarness()
	ctx := context.Background()

	_, err := txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		_, err := txn.WithReadOnlyTransaction(ctx, tm, func(ctx context.Context, inner *txn.Transaction) (struct{}, error) {
			return struct{}{}, nil
		})
		return struct{}{}, err
	})

	assert.ErrorIs(t, err, merrors.ErrConcurrentTransaction)
}
