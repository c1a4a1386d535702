package pgstore

import (
	"context"
	"database/sql"

	"github.com/jbellassai/koncentric/storage"
)

// Storage mints Handles backed by *sql.Tx against a resolved
// primary/replica Connection: read-write handles route to the primary at
// serializable isolation, read-only handles route to a replica and are
// opened with sql.TxOptions.ReadOnly set so dbresolver can load-balance
// them.
type Storage struct {
	conn *Connection
}

var _ storage.Storage = (*Storage)(nil)

// NewStorage binds a Storage to an already-Connected Connection.
func NewStorage(conn *Connection) *Storage {
	return &Storage{conn: conn}
}

// NewReadOnlyHandle opens a read-only *sql.Tx against a replica.
func (s *Storage) NewReadOnlyHandle(ctx context.Context) (storage.Handle, error) {
	tx, err := s.conn.DB().BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}

	return &Handle{tx: tx}, nil
}

// NewReadWriteHandle opens a serializable *sql.Tx against the primary.
func (s *Storage) NewReadWriteHandle(ctx context.Context) (storage.Handle, error) {
	tx, err := s.conn.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}

	return &Handle{tx: tx}, nil
}
