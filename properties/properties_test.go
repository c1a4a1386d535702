package properties

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbellassai/koncentric/lazyrefresh"
	"github.com/jbellassai/koncentric/merrors"
)

func TestSetLazy_DebugsAsNotYetResolvedBeforeFirstGet(t *testing.T) {
	p := New()
	p.SetDebugPropertyOrder([]string{"name"})
	SetLazy(p, "name", func(context.Context) (string, error) { return "Bell", nil })

	snap := p.DebugSnapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, NotYetResolved, snap[0].Value)
}

func TestGetLazy_InvokesComputeExactlyOnceUntilReset(t *testing.T) {
	p := New()
	calls := 0
	SetLazy(p, "name", func(context.Context) (string, error) {
		calls++
		return "Bell", nil
	})

	ctx := context.Background()

	v, err := GetLazy[string](ctx, p, "name")
	require.NoError(t, err)
	assert.Equal(t, "Bell", v)

	v, err = GetLazy[string](ctx, p, "name")
	require.NoError(t, err)
	assert.Equal(t, "Bell", v)
	assert.Equal(t, 1, calls)

	p.ResetLazy("name")

	_, err = GetLazy[string](ctx, p, "name")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetLazy_LazyRefreshForcesReinvocation(t *testing.T) {
	p := New()
	calls := 0
	SetLazy(p, "name", func(context.Context) (string, error) {
		calls++
		return "Bell", nil
	})

	ctx := context.Background()
	_, err := GetLazy[string](ctx, p, "name")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	err = lazyrefresh.Run(ctx, func(ctx context.Context) error {
		_, err := GetLazy[string](ctx, p, "name")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = GetLazy[string](ctx, p, "name")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "no refresh flag outside the block: no extra invocation")
}

func TestUpdateIfResolved_NoOpOnUnresolved(t *testing.T) {
	p := New()
	calls := 0
	SetLazy(p, "name", func(context.Context) (string, error) {
		calls++
		return "Bell", nil
	})

	err := UpdateIfResolved(p, "name", func(s string) string { return s + "!" })
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	snap := func() []DebugEntry {
		p.SetDebugPropertyOrder([]string{"name"})
		return p.DebugSnapshot()
	}()
	assert.Equal(t, NotYetResolved, snap[0].Value)
}

func TestUpdateIfResolved_UpdatesResolvedAndMemoizedWithoutRecompute(t *testing.T) {
	p := New()
	calls := 0
	SetLazy(p, "name", func(context.Context) (string, error) {
		calls++
		return "Bell", nil
	})

	ctx := context.Background()
	_, err := GetLazy[string](ctx, p, "name")
	require.NoError(t, err)

	err = UpdateIfResolved(p, "name", func(s string) string { return s + "!" })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	v, err := Get[string](p, "name")
	require.NoError(t, err)
	assert.Equal(t, "Bell!", v)
}

func TestCopy_IsIndependent(t *testing.T) {
	p := New()
	p.Set("name", "Bell")

	clone := p.Copy()
	clone.Set("name", "Other")

	v, err := Get[string](p, "name")
	require.NoError(t, err)
	assert.Equal(t, "Bell", v)

	v, err = Get[string](clone, "name")
	require.NoError(t, err)
	assert.Equal(t, "Other", v)
}

func TestGet_WrongTypeRaisesErrorAndDoesNotMutate(t *testing.T) {
	p := New()
	p.Set("age", 42)

	_, err := Get[string](p, "age")
	require.Error(t, err)

	var typeErr merrors.UnexpectedPropertyTypeError
	require.ErrorAs(t, err, &typeErr)

	v, err := Get[int](p, "age")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestGet_MissingPropertyRaisesNoSuchProperty(t *testing.T) {
	p := New()

	_, err := Get[string](p, "missing")
	require.Error(t, err)

	var notFound merrors.NoSuchPropertyError
	require.ErrorAs(t, err, &notFound)
}

func TestResetLazy_NoOpOnResolvedAndUnresolved(t *testing.T) {
	p := New()
	p.Set("name", "Bell")
	p.ResetLazy("name")

	v, err := Get[string](p, "name")
	require.NoError(t, err)
	assert.Equal(t, "Bell", v)

	calls := 0
	SetLazy(p, "other", func(context.Context) (string, error) {
		calls++
		return "x", nil
	})
	p.ResetLazy("other")
	_, err = GetLazy[string](context.Background(), p, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGet_RejectsMemoizedCell(t *testing.T) {
	p := New()
	SetLazy(p, "name", func(context.Context) (string, error) { return "Bell", nil })

	_, err := GetLazy[string](context.Background(), p, "name")
	require.NoError(t, err)

	_, err = Get[string](p, "name")
	require.Error(t, err, "Get is Resolved-only; a memoized property must be read through GetLazy")

	var typeErr merrors.UnexpectedPropertyTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestRemove_DeletesEntry(t *testing.T) {
	p := New()
	p.Set("name", "Bell")
	p.Remove("name")

	_, err := Get[string](p, "name")
	require.Error(t, err)
}
