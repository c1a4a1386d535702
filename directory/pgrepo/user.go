// Package pgrepo implements directory.UserRepository on storage/pgstore,
// grounded on the teacher's mpostgres.Table raw-SQL helpers generalized
// from a single reflective table to the hand-written statements a
// repository for a known aggregate shape writes directly.
package pgrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jbellassai/koncentric/directory"
	"github.com/jbellassai/koncentric/merrors"
	"github.com/jbellassai/koncentric/storage/pgstore"
	"github.com/jbellassai/koncentric/txn"
)

// uniqueViolation is the SQLSTATE Postgres raises for a violated unique
// index, used here to translate the users.email uniqueness constraint
// into directory.ErrUserEmailNotUnique.
const uniqueViolation = "23505"

// UserRepository is the pgstore-backed directory.UserRepository. Schema:
//
//	CREATE TABLE users (
//	    id uuid PRIMARY KEY,
//	    email text UNIQUE NOT NULL,
//	    first_name text NOT NULL,
//	    last_name text NOT NULL,
//	    status text NOT NULL
//	);
//	CREATE TABLE memberships (
//	    user_id uuid NOT NULL REFERENCES users(id),
//	    group_id uuid NOT NULL,
//	    PRIMARY KEY (user_id, group_id)
//	);
type UserRepository struct{}

// NewUserRepository builds a UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

var _ directory.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, spec directory.UserSpec) (*directory.User, error) {
	handle, err := txn.CurrentHandle[*pgstore.Handle](ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()

	_, err = handle.Tx().ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, status) VALUES ($1, $2, $3, $4, $5)`,
		id, spec.Email, spec.FirstName, spec.LastName, string(directory.StatusEnabled))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, merrors.ValidateBusinessError(
				directory.ErrUserEmailNotUnique, "User", directory.ErrUserEmailNotUnique,
				fmt.Sprintf("email %q already in use", spec.Email),
			)
		}

		return nil, err
	}

	return r.toUser(id, spec, directory.StatusEnabled), nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*directory.User, error) {
	handle, err := txn.CurrentHandle[*pgstore.Handle](ctx)
	if err != nil {
		return nil, err
	}

	var (
		email, firstName, lastName, status string
	)

	err = handle.Tx().QueryRowContext(ctx,
		`SELECT email, first_name, last_name, status FROM users WHERE id = $1`, id,
	).Scan(&email, &firstName, &lastName, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, merrors.EntityNotFoundError{EntityType: "User", ID: id}
	}
	if err != nil {
		return nil, err
	}

	return r.toUser(id, directory.NewUserSpec(email, firstName, lastName), directory.Status(status)), nil
}

// AddMembershipTo records u as a member of g by inserting a row into
// memberships, inside the ambient read-write transaction, then resets u's
// Groups property so the caller's next Groups call reflects the change.
func (r *UserRepository) AddMembershipTo(ctx context.Context, u *directory.User, g *directory.Group) error {
	_, err := txn.WithCurrentReadWriteTransaction(ctx, func(ctx context.Context, tx *txn.Transaction) (struct{}, error) {
		handle, err := txn.CurrentHandle[*pgstore.Handle](ctx)
		if err != nil {
			return struct{}{}, err
		}

		_, err = handle.Tx().ExecContext(ctx,
			`INSERT INTO memberships (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			u.ID(), g.ID())
		if err != nil {
			return struct{}{}, err
		}

		if err := tx.Notify(ctx, directory.MembershipAdded{UserID: u.ID(), GroupID: g.ID()}, directory.MembershipAddedType); err != nil {
			return struct{}{}, err
		}

		u.ResetGroups()

		return struct{}{}, nil
	})

	return err
}

func (r *UserRepository) toUser(id string, spec directory.UserSpec, status directory.Status) *directory.User {
	return directory.NewUser(id, spec, status, func(ctx context.Context) ([]string, error) {
		handle, err := txn.CurrentHandle[*pgstore.Handle](ctx)
		if err != nil {
			return nil, err
		}

		rows, err := handle.Tx().QueryContext(ctx, `SELECT group_id FROM memberships WHERE user_id = $1`, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var gid string
			if err := rows.Scan(&gid); err != nil {
				return nil, err
			}
			ids = append(ids, gid)
		}

		return ids, rows.Err()
	})
}
