package memrepo

import (
	"context"

	"github.com/jbellassai/koncentric/directory"
	"github.com/jbellassai/koncentric/events"
	"github.com/jbellassai/koncentric/storage/memstore"
	"github.com/jbellassai/koncentric/txn"
)

// NewMembershipListener builds the events.Listener that translates a
// published directory.MembershipAdded into the adapter's native
// association-set write. Register it once per process with
// events.Manager.Subscribe.
func NewMembershipListener() *events.Listener {
	return &events.Listener{
		EventType: directory.MembershipAddedType,
		Handle: func(ctx context.Context, tx any, event events.Event) error {
			added, ok := event.(directory.MembershipAdded)
			if !ok {
				return nil
			}

			t, ok := tx.(*txn.Transaction)
			if !ok {
				return nil
			}

			handle, ok := t.Handle().(*memstore.Handle)
			if !ok {
				return nil
			}

			handle.Update(func(s *memstore.Snapshot) *memstore.Snapshot {
				return s.Associate(membershipSet, added.UserID, added.GroupID)
			})

			return nil
		},
	}
}
