package directory

//go:generate mockgen -source=repository.go -destination=repository_mock.go -package=directory

import "context"

// UserRepository persists and loads User aggregates. Create and
// AddMembershipTo must run inside a read-write transaction (typically via
// txn.WithReadWriteTransaction); Get may run inside either transaction
// kind, and the memrepo and pgrepo implementations fail with
// ErrCurrentTransactionUnavailable outside one. The returned User's lazy
// Groups property needs a transaction again at the point it is resolved.
type UserRepository interface {
	Create(ctx context.Context, spec UserSpec) (*User, error)
	Get(ctx context.Context, id string) (*User, error)

	// AddMembershipTo records u as a member of g. It must run inside the
	// ambient read-write transaction; on success it resets u's Groups
	// property so the caller's next Groups call reflects the new
	// membership without an explicit lazyrefresh scope, while g's Members
	// property is left memoized (if already resolved) per the asymmetric
	// invalidation the scenario suite exercises.
	AddMembershipTo(ctx context.Context, u *User, g *Group) error
}

// GroupRepository persists and loads Group aggregates.
type GroupRepository interface {
	Create(ctx context.Context, spec GroupSpec) (*Group, error)
	Get(ctx context.Context, id string) (*Group, error)
}
