// Package db is the authoritative relational store of the display node. It
// owns screen identity and binding plus the per-school schedule, roster and
// notice tables the snapshot builder reads. The hot serving path never touches
// this package once the identity cache is warm.
package db

import (
	"context"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Config holds the connection options for the SQL database.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Database wraps the SQL connection pool behind the display node's queries.
type Database struct {
	db *sqlx.DB
}

// New opens a pgx-backed connection pool and verifies it with a ping.
func New(ctx context.Context, cfg *Config) (*Database, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	log.Info("Connected to database")
	return &Database{db: db}, nil
}

// NewWithDB wraps an existing connection. Used by tests with a mock driver.
func NewWithDB(db *sqlx.DB) *Database {
	return &Database{db: db}
}

// Ping verifies the pool still reaches the server.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}
