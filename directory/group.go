package directory

import (
	"context"
	"errors"

	"github.com/jbellassai/koncentric/properties"
	"github.com/jbellassai/koncentric/txn"
)

// ErrGroupNameNotUnique is raised by a GroupRepository.Create call whose
// name already belongs to another group.
var ErrGroupNameNotUnique = errors.New("group name not unique")

// GroupSpec is the input to GroupRepository.Create.
type GroupSpec struct {
	Name string
}

// NewGroupSpec builds a GroupSpec from a literal name.
func NewGroupSpec(name string) GroupSpec {
	return GroupSpec{Name: name}
}

// Group is an aggregate whose name is resolved eagerly and whose member
// list is a lazy, repository-backed property.
type Group struct {
	id    string
	props *properties.PersistentProperties
}

// NewGroup is the builder-style constructor domain repositories use to
// seed a Group's PersistentProperties.
func NewGroup(id string, spec GroupSpec, status Status, loadMembers func(ctx context.Context) ([]string, error)) *Group {
	props := properties.New()
	props.Set("name", spec.Name)
	props.Set("status", status)
	properties.SetLazy(props, "members", loadMembers)
	props.SetDebugPropertyOrder([]string{"name", "status", "members"})

	return &Group{id: id, props: props}
}

// ID returns the group's identity.
func (g *Group) ID() string { return g.id }

// Name returns the resolved name field.
func (g *Group) Name() (string, error) { return properties.Get[string](g.props, "name") }

// Status returns the resolved status field.
func (g *Group) Status() (Status, error) { return properties.Get[Status](g.props, "status") }

// Members resolves the lazy member-list property.
func (g *Group) Members(ctx context.Context) ([]string, error) {
	return properties.GetLazy[[]string](ctx, g.props, "members")
}

// ResetMembers returns the members property to Unresolved.
func (g *Group) ResetMembers() {
	g.props.ResetLazy("members")
}

// UpdateName updates the group's name, inside the ambient read-write
// transaction, and publishes GroupRenamed.
func (g *Group) UpdateName(ctx context.Context, name string) error {
	_, err := txn.WithCurrentReadWriteTransaction(ctx, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		g.props.Set("name", name)

		err := tx.Notify(ctx, GroupRenamed{GroupID: g.id, Name: name}, GroupRenamedType)
		return struct{}{}, err
	})

	return err
}
