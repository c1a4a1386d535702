// Command demo wires the in-memory storage adapter, the transaction
// manager, and the directory domain layer together and runs the user/
// group/membership scenario end to end, logging through mlog the way a
// small service entry point in the teacher's components would.
package main

import (
	"context"
	"fmt"

	"github.com/jbellassai/koncentric/directory"
	"github.com/jbellassai/koncentric/directory/memrepo"
	"github.com/jbellassai/koncentric/events"
	"github.com/jbellassai/koncentric/mlog"
	"github.com/jbellassai/koncentric/storage/memstore"
	"github.com/jbellassai/koncentric/txn"
)

func main() {
	logger, err := mlog.NewZapLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := mlog.ContextWithLogger(context.Background(), logger)

	store := memstore.New()
	eventManager := events.NewManager()
	eventManager.Subscribe(memrepo.NewMembershipListener())

	manager := txn.NewManager(store, eventManager)
	users := memrepo.NewUserRepository()
	groups := memrepo.NewGroupRepository()

	if err := run(ctx, logger, manager, users, groups); err != nil {
		logger.Errorf("demo: %v", err)
	}
}

func run(ctx context.Context, logger mlog.Logger, manager *txn.Manager, users directory.UserRepository, groups directory.GroupRepository) error {
	result, err := txn.WithReadWriteTransaction(ctx, manager, 3, func(ctx context.Context, tx *txn.Transaction) (ids, error) {
		u, err := users.Create(ctx, directory.NewUserSpec("j@e.com", "John", "Bell"))
		if err != nil {
			return ids{}, err
		}

		g, err := groups.Create(ctx, directory.NewGroupSpec("engineering"))
		if err != nil {
			return ids{}, err
		}

		if err := users.AddMembershipTo(ctx, u, g); err != nil {
			return ids{}, err
		}

		return ids{user: u.ID(), group: g.ID()}, nil
	})
	if err != nil {
		return err
	}

	_, err = txn.WithReadOnlyTransaction(ctx, manager, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		u, err := users.Get(ctx, result.user)
		if err != nil {
			return struct{}{}, err
		}

		groupsOf, err := u.Groups(ctx)
		if err != nil {
			return struct{}{}, err
		}

		logger.Infof("user %s belongs to groups %v", result.user, groupsOf)
		fmt.Printf("user %s belongs to groups %v\n", result.user, groupsOf)

		return struct{}{}, nil
	})

	return err
}

type ids struct {
	user  string
	group string
}
