// Package directory is the demonstration domain layer: User and Group
// aggregates built on properties.PersistentProperties, exercising the core
// end to end the way a real domain author would use it. It is not part of
// the persistence core; it is a collaborator, the same relationship the
// teacher's onboarding component has to its common packages.
package directory

import "reflect"

// UserRenamed is published after a user's name fields are updated.
type UserRenamed struct {
	UserID    string
	FirstName string
	LastName  string
}

// GroupRenamed is published after a group's name is updated.
type GroupRenamed struct {
	GroupID string
	Name    string
}

// MembershipAdded is published after a user is added to a group. The
// write-through listener in memrepo subscribes to this to update both
// sides of the association set.
type MembershipAdded struct {
	UserID  string
	GroupID string
}

// Event type tokens passed to Transaction.Notify and events.Manager.Subscribe.
var (
	UserRenamedType     = reflect.TypeOf(UserRenamed{})
	GroupRenamedType    = reflect.TypeOf(GroupRenamed{})
	MembershipAddedType = reflect.TypeOf(MembershipAdded{})
)
