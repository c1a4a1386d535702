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

const groupsTable = "groups"

// groupRecord is the plain value stored in the "groups" table.
type groupRecord struct {
	ID     string
	Name   string
	Status directory.Status
}

// GroupRepository is the memstore-backed directory.GroupRepository.
type GroupRepository struct{}

// NewGroupRepository builds a GroupRepository.
func NewGroupRepository() *GroupRepository {
	return &GroupRepository{}
}

var _ directory.GroupRepository = (*GroupRepository)(nil)

func (r *GroupRepository) Create(ctx context.Context, spec directory.GroupSpec) (*directory.Group, error) {
	handle, err := txn.CurrentHandle[*memstore.Handle](ctx)
	if err != nil {
		return nil, err
	}

	for _, v := range handle.Snapshot().All(groupsTable) {
		rec := v.(groupRecord)
		if rec.Name == spec.Name {
			return nil, merrors.ValidateBusinessError(
				directory.ErrGroupNameNotUnique, "Group", directory.ErrGroupNameNotUnique,
				fmt.Sprintf("name %q already in use", spec.Name),
			)
		}
	}

	id := uuid.New().String()
	rec := groupRecord{ID: id, Name: spec.Name, Status: directory.StatusEnabled}

	handle.Update(func(s *memstore.Snapshot) *memstore.Snapshot {
		return s.Put(groupsTable, id, rec)
	})

	return r.toGroup(id, rec), nil
}

func (r *GroupRepository) Get(ctx context.Context, id string) (*directory.Group, error) {
	handle, err := txn.CurrentHandle[*memstore.Handle](ctx)
	if err != nil {
		return nil, err
	}

	v, ok := handle.Snapshot().Get(groupsTable, id)
	if !ok {
		return nil, merrors.EntityNotFoundError{EntityType: "Group", ID: id}
	}

	return r.toGroup(id, v.(groupRecord)), nil
}

func (r *GroupRepository) toGroup(id string, rec groupRecord) *directory.Group {
	spec := directory.NewGroupSpec(rec.Name)

	return directory.NewGroup(id, spec, rec.Status, func(ctx context.Context) ([]string, error) {
		handle, err := txn.CurrentHandle[*memstore.Handle](ctx)
		if err != nil {
			return nil, err
		}

		return handle.Snapshot().LeftsOf(membershipSet, id), nil
	})
}
