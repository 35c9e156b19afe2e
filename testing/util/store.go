// Package util carries shared test fixtures: an in-process Redis harness,
// a canonical school-day schedule source, and prebuilt display documents.
package util

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/azzam1122112-dot/school-display/display-node/store"
	"github.com/redis/go-redis/v9"
)

// SetupStore spins up an in-process Redis instance and returns a key-value
// store wired to it. Both are torn down with the test. The miniredis handle
// is returned so tests can fast-forward TTLs or drop keys directly.
func SetupStore(t testing.TB) (*store.Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := store.NewWithClient(client)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("failed to close store: %v", err)
		}
	})
	return s, mr
}
