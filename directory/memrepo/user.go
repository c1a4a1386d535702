// Package memrepo implements directory.UserRepository and
// directory.GroupRepository on top of storage/memstore, grounded on how
// the in-memory policy store's transaction-local snapshot pattern
// generalizes to named tables and association sets. A MembershipListener
// subscribed to directory.MembershipAdded keeps the group side of the
// membership association set in sync whenever a user-side mutation
// publishes the event, the write-through path spec.md §6's "publishing an
// event from a listener ... translated into the adapter's native write
// operations" describes.
package memrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jbellassai/koncentric/directory"
	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/storage/memstore"
	"github.com/jbellassai/koncentric/txn"
)

const usersTable = "users"
const membershipSet = "membership"

// userRecord is the plain value stored in the "users" table; User
// aggregates are built from it on read.
type userRecord struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Status    directory.Status
}

// UserRepository is the memstore-backed directory.UserRepository.
type UserRepository struct{}

// NewUserRepository builds a UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

var _ directory.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, spec directory.UserSpec) (*directory.User, error) {
	handle, err := txn.CurrentHandle[*memstore.Handle](ctx)
	if err != nil {
		return nil, err
	}

	for _, v := range handle.Snapshot().All(usersTable) {
		rec := v.(userRecord)
		if rec.Email == spec.Email {
			return nil, merrors.ValidateBusinessError(
				directory.ErrUserEmailNotUnique, "User", directory.ErrUserEmailNotUnique,
				fmt.Sprintf("email %q already in use", spec.Email),
			)
		}
	}

	id := uuid.New().String()
	rec := userRecord{ID: id, Email: spec.Email, FirstName: spec.FirstName, LastName: spec.LastName, Status: directory.StatusEnabled}

	handle.Update(func(s *memstore.Snapshot) *memstore.Snapshot {
		return s.Put(usersTable, id, rec)
	})

	return r.toUser(id, rec), nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*directory.User, error) {
	handle, err := txn.CurrentHandle[*memstore.Handle](ctx)
	if err != nil {
		return nil, err
	}

	v, ok := handle.Snapshot().Get(usersTable, id)
	if !ok {
		return nil, merrors.EntityNotFoundError{EntityType: "User", ID: id}
	}

	return r.toUser(id, v.(userRecord)), nil
}

// AddMembershipTo records u as a member of g by publishing
// directory.MembershipAdded on the ambient transaction; the
// MembershipListener performs the actual association-set write. Afterward
// it resets u's Groups property so the caller observes the new membership
// immediately, leaving g's Members property untouched per the scenario
// suite's asymmetric invalidation.
func (r *UserRepository) AddMembershipTo(ctx context.Context, u *directory.User, g *directory.Group) error {
	_, err := txn.WithCurrentReadWriteTransaction(ctx, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		event := directory.MembershipAdded{UserID: u.ID(), GroupID: g.ID()}
		if err := tx.Notify(ctx, event, directory.MembershipAddedType); err != nil {
			return struct{}{}, err
		}

		u.ResetGroups()

		return struct{}{}, nil
	})

	return err
}

func (r *UserRepository) toUser(id string, rec userRecord) *directory.User {
	spec := directory.NewUserSpec(rec.Email, rec.FirstName, rec.LastName)

	return directory.NewUser(id, spec, rec.Status, func(ctx context.Context) ([]string, error) {
		handle, err := txn.CurrentHandle[*memstore.Handle](ctx)
		if err != nil {
			return nil, err
		}

		return handle.Snapshot().RightsOf(membershipSet, id), nil
	})
}
