// Package pgstore is the Postgres storage adapter: a Storage that mints
// Handles wrapping a *sql.Tx, at serializable isolation for read-write
// handles; read-only handles set only the read-only flag and run at the
// server's default isolation level. It is grounded on
// the teacher's PostgresConnection: a primary/replica pair fronted by
// dbresolver, bootstrapped with golang-migrate, using the pgx stdlib
// driver rather than pgx's native pool so database/sql's *sql.Tx remains
// the handle type repositories downcast to.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jbellassai/koncentric/mlog"
)

// Config names the primary/replica connection strings and the migrations
// directory bootstrapped against the primary on Connect.
type Config struct {
	PrimaryDSN     string
	ReplicaDSN     string
	DatabaseName   string
	MigrationsPath string
}

// Connection is a handle on the primary/replica pair, connected by an
// explicit Connect call and reused by every Storage minted against it.
type Connection struct {
	cfg     Config
	db      dbresolver.DB
	primary *sql.DB
}

// NewConnection wraps cfg without opening anything; Connect opens the
// underlying connections and runs pending migrations.
func NewConnection(cfg Config) *Connection {
	return &Connection{cfg: cfg}
}

// Connect opens the primary and replica pools, wires them behind a
// round-robin dbresolver.DB, and runs any pending migrations against the
// primary. Safe to call once at process startup.
func (c *Connection) Connect(ctx context.Context) error {
	mlog.FromContext(ctx).Info("pgstore: connecting to primary and replica")

	primary, err := sql.Open("pgx", c.cfg.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("pgstore: open primary: %w", err)
	}

	replica, err := sql.Open("pgx", c.cfg.ReplicaDSN)
	if err != nil {
		return fmt.Errorf("pgstore: open replica: %w", err)
	}

	c.db = dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)
	c.primary = primary

	if err := c.migrate(); err != nil {
		return err
	}

	if err := c.db.Ping(); err != nil {
		return fmt.Errorf("pgstore: ping: %w", err)
	}

	mlog.FromContext(ctx).Info("pgstore: connected")

	return nil
}

func (c *Connection) migrate() error {
	if c.cfg.MigrationsPath == "" {
		return nil
	}

	abs, err := filepath.Abs(c.cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("pgstore: migrations path: %w", err)
	}

	sourceURL := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	driver, err := postgres.WithInstance(c.primary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.cfg.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("pgstore: migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), c.cfg.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("pgstore: migrate init: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("pgstore: migrate up: %w", err)
	}

	return nil
}

// DB returns the resolved primary/replica handle. Panics if called before
// Connect, mirroring that a Storage is unusable without one.
func (c *Connection) DB() dbresolver.DB {
	if c.db == nil {
		panic("pgstore: Connection.DB called before Connect")
	}

	return c.db
}
