package directory

import (
	"context"
	"errors"

	"github.com/jbellassai/koncentric/properties"
	"github.com/jbellassai/koncentric/txn"
)

// Status is an aggregate lifecycle status shared by User and Group.
type Status string

const (
	StatusEnabled  Status = "ENABLED"
	StatusDisabled Status = "DISABLED"
)

// ErrUserEmailNotUnique is raised by a UserRepository.Create call whose
// email already belongs to another user.
var ErrUserEmailNotUnique = errors.New("user email not unique")

// UserSpec is the input to UserRepository.Create.
type UserSpec struct {
	Email     string
	FirstName string
	LastName  string
}

// NewUserSpec builds a UserSpec from literal fields.
func NewUserSpec(email, firstName, lastName string) UserSpec {
	return UserSpec{Email: email, FirstName: firstName, LastName: lastName}
}

// User is an aggregate whose scalar fields are resolved eagerly and whose
// group membership is a lazy, repository-backed property.
type User struct {
	id    string
	props *properties.PersistentProperties
}

// NewUser is the builder-style constructor domain repositories use to seed
// a User's PersistentProperties: scalar fields resolved up front, and a
// lazy closure for the related Groups, which only a repository knows how
// to load.
func NewUser(id string, spec UserSpec, status Status, loadGroups func(ctx context.Context) ([]string, error)) *User {
	props := properties.New()
	props.Set("email", spec.Email)
	props.Set("firstName", spec.FirstName)
	props.Set("lastName", spec.LastName)
	props.Set("status", status)
	properties.SetLazy(props, "groups", loadGroups)
	props.SetDebugPropertyOrder([]string{"email", "firstName", "lastName", "status", "groups"})

	return &User{id: id, props: props}
}

// ID returns the user's identity.
func (u *User) ID() string { return u.id }

// Email returns the resolved email field.
func (u *User) Email() (string, error) { return properties.Get[string](u.props, "email") }

// FirstName returns the resolved first name field.
func (u *User) FirstName() (string, error) { return properties.Get[string](u.props, "firstName") }

// LastName returns the resolved last name field.
func (u *User) LastName() (string, error) { return properties.Get[string](u.props, "lastName") }

// Status returns the resolved status field.
func (u *User) Status() (Status, error) { return properties.Get[Status](u.props, "status") }

// Groups resolves the lazy group-membership property, invoking the
// repository's loader at most once until ResetGroups or a lazyrefresh.Run
// scope forces reinvocation.
func (u *User) Groups(ctx context.Context) ([]string, error) {
	return properties.GetLazy[[]string](ctx, u.props, "groups")
}

// ResetGroups returns the groups property to Unresolved, so the next
// Groups call reloads it from the repository.
func (u *User) ResetGroups() {
	u.props.ResetLazy("groups")
}

// UpdateName updates the user's first and last name, inside the ambient
// read-write transaction, and publishes UserRenamed. Callers are expected
// to be inside a txn.WithReadWriteTransaction block; it fails with
// ErrReadWriteTransactionRequired inside a read-only transaction and with
// ErrCurrentTransactionUnavailable outside any transaction.
func (u *User) UpdateName(ctx context.Context, firstName, lastName string) error {
	_, err := txn.WithCurrentReadWriteTransaction(ctx, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u.props.Set("firstName", firstName)
		u.props.Set("lastName", lastName)

		err := tx.Notify(ctx, UserRenamed{UserID: u.id, FirstName: firstName, LastName: lastName}, UserRenamedType)
		return struct{}{}, err
	})

	return err
}
