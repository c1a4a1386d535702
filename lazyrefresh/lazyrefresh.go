// Package lazyrefresh carries the ambient, dynamically-scoped flag that
// tells PersistentProperties.GetLazy to ignore a memoized value and
// re-invoke its computation. It is realized as a context.Context value: Go
// goroutines receive ambient state through an explicit ctx parameter rather
// than a thread-local, and context.Context's immutability means the flag is
// restored on block exit — including a panic — for free, with no deferred
// cleanup required.
package lazyrefresh

import "context"

type flagKey struct{}

// With returns a context in which IsSet reports true, valid for the
// dynamic extent of whatever is done with the returned context. It never
// mutates ctx itself, so callers outside the returned context are
// unaffected.
func With(ctx context.Context) context.Context {
	return context.WithValue(ctx, flagKey{}, true)
}

// IsSet reports whether ctx carries the lazy-refresh flag.
func IsSet(ctx context.Context) bool {
	v, _ := ctx.Value(flagKey{}).(bool)
	return v
}

// Run installs the flag and invokes fn with the resulting context, the
// block-scoped form of the ambient flag (`withLazyRefresh { ... }` in the
// source material).
func Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(With(ctx))
}
