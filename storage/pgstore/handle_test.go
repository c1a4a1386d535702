package pgstore

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbellassai/koncentric/merrors"
)

func newMockHandle(t *testing.T) (*Handle, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	return &Handle{tx: tx}, mock, func() { _ = db.Close() }
}

func TestHandle_Commit_Success(t *testing.T) {
	h, mock, cleanup := newMockHandle(t)
	defer cleanup()

	mock.ExpectCommit()

	assert.NoError(t, h.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_Commit_WrapsSerializationFailureAsRetryable(t *testing.T) {
	h, mock, cleanup := newMockHandle(t)
	defer cleanup()

	pgErr := &pgconn.PgError{Code: serializationFailure, Message: "could not serialize access"}
	mock.ExpectCommit().WillReturnError(pgErr)

	err := h.Commit(context.Background())

	var retryErr merrors.TransactionRetryError
	require.True(t, errors.As(err, &retryErr))
}

func TestHandle_Commit_PassesThroughOtherErrors(t *testing.T) {
	h, mock, cleanup := newMockHandle(t)
	defer cleanup()

	boom := errors.New("connection reset")
	mock.ExpectCommit().WillReturnError(boom)

	err := h.Commit(context.Background())
	assert.Equal(t, boom, err)
}

func TestHandle_Rollback_IgnoresAlreadyDoneTx(t *testing.T) {
	h, mock, cleanup := newMockHandle(t)
	defer cleanup()

	mock.ExpectCommit()
	require.NoError(t, h.Commit(context.Background()))

	assert.NoError(t, h.Rollback(context.Background()))
}
