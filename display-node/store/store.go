// Package store is the shared key-value fabric of the display node. All
// cross-process state lives here: per-school schedule revisions, the snapshot
// cache, the bump debounce and build single-flight locks, fixed-window rate
// counters, and the invalidation pub/sub channels.
package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "store")

// ErrNotFound is returned when a requested key is absent or expired.
var ErrNotFound = errors.New("not found in store")

// Config holds the connection options for the backing Redis instance.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store wraps the Redis client behind the display node's key schema.
type Store struct {
	client redis.UniversalClient
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "could not reach redis")
	}
	log.WithField("addr", cfg.Addr).Info("Connected to key-value store")
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests and by callers that
// manage the connection themselves.
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Backup asks the server for a background save of the current dataset.
// Revision counters and bump debounces live only here, so operators snapshot
// them before maintenance windows.
func (s *Store) Backup(ctx context.Context) error {
	if err := s.client.BgSave(ctx).Err(); err != nil {
		return errors.Wrap(err, "could not trigger background save")
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
