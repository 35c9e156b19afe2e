package store

import (
	"context"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Revision returns the current schedule revision for a school. A school that
// has never been bumped reports revision zero.
func (s *Store) Revision(ctx context.Context, school int64) (int64, error) {
	v, err := s.client.Get(ctx, revKey(school)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "could not read revision")
	}
	return v, nil
}

// BumpRevision atomically advances the school's revision and refreshes the
// key TTL so active schools never lose their counter.
func (s *Store) BumpRevision(ctx context.Context, school int64) (int64, error) {
	key := revKey(school)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, params.DisplayConfig().RevisionKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "could not bump revision")
	}
	return incr.Val(), nil
}

// SetRevision forces the revision to an explicit value. Operator tooling
// only; the serving path always goes through BumpRevision.
func (s *Store) SetRevision(ctx context.Context, school, rev int64) error {
	err := s.client.Set(ctx, revKey(school), rev, params.DisplayConfig().RevisionKeyTTL).Err()
	return errors.Wrap(err, "could not set revision")
}

// AcquireBumpDebounce reports whether the caller owns the debounce window for
// a school. While the marker lives, further bump requests for the same school
// are collapsed.
func (s *Store) AcquireBumpDebounce(ctx context.Context, school int64) (bool, error) {
	ok, err := s.client.SetNX(ctx, bumpLockKey(school), "1", params.DisplayConfig().BumpDebounceTTL).Result()
	if err != nil {
		return false, errors.Wrap(err, "could not acquire bump debounce")
	}
	return ok, nil
}
