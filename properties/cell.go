package properties

import "context"

// cell is the discriminated union a property name maps to. It is realized
// as a closed interface with three unexported implementations rather than a
// tagged struct, so the zero value can never silently satisfy an invalid
// combination (e.g. a Resolved cell that also carries a compute func).
type cell interface {
	isCell()
}

// resolvedCell holds a directly known value.
type resolvedCell struct {
	value any
}

func (resolvedCell) isCell() {}

// lazyFunc is the opaque suspending closure a lazy property resolves
// through. Both a standalone closure and a bound-method reference collapse
// into this shape — the caller captures the receiver explicitly. It takes
// the ctx active at the GetLazy call site, not one captured at SetLazy
// time, so a closure that loads related aggregates through the ambient
// transaction sees whichever transaction (or none) is active when the
// property is actually read.
type lazyFunc func(ctx context.Context) (any, error)

// unresolvedCell holds a computation that has not yet been invoked.
type unresolvedCell struct {
	compute lazyFunc
}

func (unresolvedCell) isCell() {}

// memoizedCell holds a value cached from a previous invocation of compute,
// retaining compute so resetLazy can return the cell to unresolvedCell.
type memoizedCell struct {
	compute lazyFunc
	value   any
}

func (memoizedCell) isCell() {}
