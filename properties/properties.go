// Package properties implements PersistentProperties: a mutable,
// thread-safe mapping from property name to a value cell that may be a
// resolved scalar, an unresolved lazy computation, or a memoized lazy
// result. Writes replace the whole backing map atomically (copy-on-write
// under a single atomic.Pointer), the same lock-free CAS discipline the
// corpus's in-memory storage engines use for table-version swaps.
package properties

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/jbellassai/koncentric/lazyrefresh"
	"github.com/jbellassai/koncentric/merrors"
)

// PersistentProperties is a mutable, thread-safe mapping from property name
// to property cell. The zero value is not usable; construct with New.
type PersistentProperties struct {
	cells atomic.Pointer[map[string]cell]
	order atomic.Pointer[[]string]
}

// New returns an empty PersistentProperties.
func New() *PersistentProperties {
	p := &PersistentProperties{}
	empty := map[string]cell{}
	p.cells.Store(&empty)
	emptyOrder := []string{}
	p.order.Store(&emptyOrder)

	return p
}

// snapshot returns the current backing map. Never mutate the result.
func (p *PersistentProperties) snapshot() map[string]cell {
	return *p.cells.Load()
}

// swap replaces the backing map with one derived from the current snapshot
// by mutate, retrying the CAS until it wins. mutate must not retain the map
// it is given past its return.
func (p *PersistentProperties) swap(mutate func(current map[string]cell) map[string]cell) {
	for {
		old := p.cells.Load()
		next := mutate(*old)

		if p.cells.CompareAndSwap(old, &next) {
			return
		}
	}
}

// copyCells returns a new map holding every entry of current, the
// copy-on-write step every mutator takes before touching its own key.
func copyCells(current map[string]cell) map[string]cell {
	return lo.Assign(current)
}

// Set writes name as a resolved scalar value, replacing whatever cell was
// there before.
func (p *PersistentProperties) Set(name string, value any) {
	p.swap(func(current map[string]cell) map[string]cell {
		next := copyCells(current)
		next[name] = resolvedCell{value: value}

		return next
	})
}

// SetLazyFunc writes name as an unresolved lazy computation. Prefer the
// generic SetLazy helper from call sites that know T at compile time.
func (p *PersistentProperties) SetLazyFunc(name string, compute func(ctx context.Context) (any, error)) {
	p.swap(func(current map[string]cell) map[string]cell {
		next := copyCells(current)
		next[name] = unresolvedCell{compute: compute}

		return next
	})
}

// SetLazy writes name as an unresolved lazy computation of type T. Go
// methods cannot carry their own type parameters, so this is a
// package-level function rather than a method.
func SetLazy[T any](p *PersistentProperties, name string, compute func(ctx context.Context) (T, error)) {
	p.SetLazyFunc(name, func(ctx context.Context) (any, error) {
		v, err := compute(ctx)
		return v, err
	})
}

// Remove deletes name, if present.
func (p *PersistentProperties) Remove(name string) {
	p.swap(func(current map[string]cell) map[string]cell {
		if _, ok := current[name]; !ok {
			return current
		}

		next := copyCells(current)
		delete(next, name)

		return next
	})
}

// ResetLazy returns a Memoized(f, _) cell to Unresolved(f); it is a no-op
// on Unresolved or Resolved cells, and on a missing name.
func (p *PersistentProperties) ResetLazy(name string) {
	p.swap(func(current map[string]cell) map[string]cell {
		c, ok := current[name]
		if !ok {
			return current
		}

		m, ok := c.(memoizedCell)
		if !ok {
			return current
		}

		next := copyCells(current)
		next[name] = unresolvedCell{compute: m.compute}

		return next
	})
}

// Get returns the value of name, type-checked as T. It is Resolved-only:
// it never invokes a lazy computation, and a cell that is Unresolved or
// Memoized is a type error rather than a value, since a lazy property must
// be read through GetLazy to see its computed result.
func Get[T any](p *PersistentProperties, name string) (T, error) {
	var zero T

	c, ok := p.snapshot()[name]
	if !ok {
		return zero, merrors.NoSuchPropertyError{Name: name}
	}

	switch v := c.(type) {
	case resolvedCell:
		return typeCheck[T](name, v.value, false)
	case memoizedCell:
		return zero, merrors.UnexpectedPropertyTypeError{
			Name:     name,
			Expected: fmt.Sprintf("%T", zero),
			Actual:   "memoized",
			Lazy:     false,
		}
	case unresolvedCell:
		return zero, merrors.UnexpectedPropertyTypeError{
			Name:     name,
			Expected: fmt.Sprintf("%T", zero),
			Actual:   "unresolved",
			Lazy:     false,
		}
	default:
		return zero, merrors.NoSuchPropertyError{Name: name}
	}
}

// GetLazy resolves name per the lazy state machine: an Unresolved cell
// invokes its computation and memoizes the result; a Memoized cell returns
// its cached value, unless ctx carries the lazy-refresh flag, in which case
// it resets to Unresolved and recurses; a Resolved cell returns its value
// directly. The result is type-checked as T before it is returned.
func GetLazy[T any](ctx context.Context, p *PersistentProperties, name string) (T, error) {
	var zero T

	c, ok := p.snapshot()[name]
	if !ok {
		return zero, merrors.NoSuchPropertyError{Name: name}
	}

	switch v := c.(type) {
	case resolvedCell:
		return typeCheck[T](name, v.value, true)

	case memoizedCell:
		if lazyrefresh.IsSet(ctx) {
			p.swap(func(current map[string]cell) map[string]cell {
				cur, ok := current[name]
				if !ok {
					return current
				}

				mm, ok := cur.(memoizedCell)
				if !ok {
					return current
				}

				next := copyCells(current)
				next[name] = unresolvedCell{compute: mm.compute}

				return next
			})

			return GetLazy[T](ctx, p, name)
		}

		return typeCheck[T](name, v.value, true)

	case unresolvedCell:
		value, err := v.compute(ctx)
		if err != nil {
			return zero, err
		}

		p.swap(func(current map[string]cell) map[string]cell {
			next := copyCells(current)
			next[name] = memoizedCell{compute: v.compute, value: value}

			return next
		})

		return typeCheck[T](name, value, true)

	default:
		return zero, merrors.NoSuchPropertyError{Name: name}
	}
}

// UpdateIfResolved applies update to the current value of name and writes
// the result back, without invoking a lazy computation. It is a no-op on an
// Unresolved cell; on Resolved and Memoized cells the new value replaces
// the cell as Resolved — once a caller overwrites a lazily-derived value by
// hand, the cell's connection to its originating computation is severed, so
// a later ResetLazy has nothing left to reset to.
func UpdateIfResolved[T any](p *PersistentProperties, name string, update func(T) T) error {
	var outerErr error

	p.swap(func(current map[string]cell) map[string]cell {
		c, ok := current[name]
		if !ok {
			return current
		}

		var currentValue any

		switch v := c.(type) {
		case unresolvedCell:
			return current
		case resolvedCell:
			currentValue = v.value
		case memoizedCell:
			currentValue = v.value
		default:
			return current
		}

		typed, ok := currentValue.(T)
		if !ok {
			var zero T
			outerErr = merrors.UnexpectedPropertyTypeError{
				Name:     name,
				Expected: fmt.Sprintf("%T", zero),
				Actual:   fmt.Sprintf("%T", currentValue),
			}

			return current
		}

		next := copyCells(current)
		next[name] = resolvedCell{value: update(typed)}

		return next
	})

	return outerErr
}

// Copy returns an independent instance observing the current snapshot;
// subsequent mutations of either instance do not affect the other.
func (p *PersistentProperties) Copy() *PersistentProperties {
	next := &PersistentProperties{}

	copied := copyCells(p.snapshot())
	next.cells.Store(&copied)

	order := append([]string(nil), *p.order.Load()...)
	next.order.Store(&order)

	return next
}

// SetDebugPropertyOrder records the property name order DebugSnapshot walks.
func (p *PersistentProperties) SetDebugPropertyOrder(order []string) {
	copied := append([]string(nil), order...)
	p.order.Store(&copied)
}

// NotYetResolvedSentinel is the DebugSnapshot value for a property whose
// cell is Unresolved.
type NotYetResolvedSentinel struct{}

func (NotYetResolvedSentinel) String() string { return "<not yet resolved>" }

// NotYetResolved is the sentinel DebugSnapshot reports for Unresolved cells.
var NotYetResolved = NotYetResolvedSentinel{}

// DebugEntry is one row of a DebugSnapshot.
type DebugEntry struct {
	Name  string
	Value any
}

// DebugSnapshotter is implemented by values that should be recursed into
// during DebugSnapshot rather than printed opaquely.
type DebugSnapshotter interface {
	DebugSnapshot() []DebugEntry
}

// DebugSnapshot returns an ordered mapping following the names recorded by
// SetDebugPropertyOrder: Unresolved reports NotYetResolved, Memoized
// reports its cached value, Resolved reports its value. A value that
// itself implements DebugSnapshotter is recursed into.
func (p *PersistentProperties) DebugSnapshot() []DebugEntry {
	snap := p.snapshot()
	order := *p.order.Load()

	entries := make([]DebugEntry, 0, len(order))

	for _, name := range order {
		c, ok := snap[name]
		if !ok {
			continue
		}

		var value any

		switch v := c.(type) {
		case unresolvedCell:
			value = NotYetResolved
		case memoizedCell:
			value = debugValue(v.value)
		case resolvedCell:
			value = debugValue(v.value)
		}

		entries = append(entries, DebugEntry{Name: name, Value: value})
	}

	return entries
}

func debugValue(v any) any {
	if snapper, ok := v.(DebugSnapshotter); ok {
		return snapper.DebugSnapshot()
	}

	return v
}

func typeCheck[T any](name string, value any, lazy bool) (T, error) {
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, merrors.UnexpectedPropertyTypeError{
			Name:     name,
			Expected: fmt.Sprintf("%T", zero),
			Actual:   fmt.Sprintf("%T", value),
			Lazy:     lazy,
		}
	}

	return typed, nil
}
