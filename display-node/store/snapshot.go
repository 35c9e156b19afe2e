package store

import (
	"context"
	"strconv"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Saved is one cached snapshot entry: the canonical body, the strong ETag
// that hashes it, and the build instant in unix milliseconds. The three are
// stored together so serving never recomputes the hash.
type Saved struct {
	Body    []byte
	ETag    string
	BuiltMS int64
}

// Snapshot returns the cached entry for one (school, revision) pair.
func (s *Store) Snapshot(ctx context.Context, school, rev int64) (*Saved, error) {
	fields, err := s.client.HGetAll(ctx, snapKey(school, rev)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "could not read snapshot")
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	saved := &Saved{
		Body: []byte(fields["body"]),
		ETag: fields["etag"],
	}
	if ms, err := strconv.ParseInt(fields["built_ms"], 10, 64); err == nil {
		saved.BuiltMS = ms
	}
	if len(saved.Body) == 0 || saved.ETag == "" {
		return nil, errors.Errorf("snapshot entry for school %d rev %d is incomplete", school, rev)
	}
	return saved, nil
}

// SaveSnapshot writes a built snapshot. Entries are immutable once written;
// overwrites only ever happen with identical content after a lock expiry
// race.
func (s *Store) SaveSnapshot(ctx context.Context, school, rev int64, saved *Saved) error {
	key := snapKey(school, rev)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"body", saved.Body,
		"etag", saved.ETag,
		"built_ms", saved.BuiltMS,
	)
	pipe.Expire(ctx, key, params.DisplayConfig().SnapshotTTL)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "could not save snapshot")
}

// StaleSnapshot scans for any surviving snapshot of the school and returns
// the one with the highest revision. Serving it keeps screens alive while
// another process rebuilds the current revision.
func (s *Store) StaleSnapshot(ctx context.Context, school int64) (int64, *Saved, error) {
	iter := s.client.Scan(ctx, 0, snapPattern(school), 64).Iterator()
	best := int64(-1)
	for iter.Next(ctx) {
		rev, err := revFromSnapKey(iter.Val())
		if err != nil {
			log.WithError(err).Debug("Skipping unparseable snapshot key")
			continue
		}
		if rev > best {
			best = rev
		}
	}
	if err := iter.Err(); err != nil {
		return 0, nil, errors.Wrap(err, "could not scan for stale snapshots")
	}
	if best < 0 {
		return 0, nil, ErrNotFound
	}
	saved, err := s.Snapshot(ctx, school, best)
	if err != nil {
		return 0, nil, err
	}
	return best, saved, nil
}

// AcquireBuildLock attempts to take the per-school single-flight build lock.
// The returned token must be handed back to ReleaseBuildLock; the TTL bounds
// how long a crashed holder can block other builders.
func (s *Store) AcquireBuildLock(ctx context.Context, school int64) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, buildLockKey(school), token, params.DisplayConfig().BuildLockTTL).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "could not acquire build lock")
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

var releaseBuildLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ReleaseBuildLock deletes the lock only while the caller's token is still
// the value, so a holder that outlived the TTL cannot release a successor's
// lock.
func (s *Store) ReleaseBuildLock(ctx context.Context, school int64, token string) error {
	err := releaseBuildLock.Run(ctx, s.client, []string{buildLockKey(school)}, token).Err()
	return errors.Wrap(err, "could not release build lock")
}
