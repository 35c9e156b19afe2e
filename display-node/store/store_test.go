package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/redis/go-redis/v9"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	params.SetupTestConfigCleanup(t)
	params.OverrideDisplayConfig(params.MinimalConfig())
	mr := miniredis.RunT(t)
	s := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	})
	return s, mr
}

func TestRevisionLifecycle(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	rev, err := s.Revision(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)

	rev, err = s.BumpRevision(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	rev, err = s.BumpRevision(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	require.NoError(t, s.SetRevision(ctx, 7, 9))
	rev, err = s.Revision(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(9), rev)

	// Other schools are untouched.
	rev, err = s.Revision(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)
}

func TestBumpDebounceWindow(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	ok, err := s.AcquireBumpDebounce(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, true, ok)

	ok, err = s.AcquireBumpDebounce(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, false, ok)

	// An unrelated school has its own window.
	ok, err = s.AcquireBumpDebounce(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, true, ok)

	mr.FastForward(params.DisplayConfig().BumpDebounceTTL + time.Millisecond)

	ok, err = s.AcquireBumpDebounce(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, true, ok)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	_, err := s.Snapshot(ctx, 3, 12)
	require.ErrorIs(t, err, ErrNotFound)

	saved := &Saved{
		Body:    []byte(`{"meta":{"schedule_revision":12}}`),
		ETag:    `"abc123"`,
		BuiltMS: 1756100000000,
	}
	require.NoError(t, s.SaveSnapshot(ctx, 3, 12, saved))

	got, err := s.Snapshot(ctx, 3, 12)
	require.NoError(t, err)
	assert.DeepEqual(t, saved.Body, got.Body)
	assert.Equal(t, saved.ETag, got.ETag)
	assert.Equal(t, saved.BuiltMS, got.BuiltMS)

	mr.FastForward(params.DisplayConfig().SnapshotTTL + time.Second)

	_, err = s.Snapshot(ctx, 3, 12)
	require.ErrorIs(t, err, ErrNotFound)
}

func entry(body string) *Saved {
	return &Saved{Body: []byte(body), ETag: `"` + body + `"`, BuiltMS: 1}
}

func TestStaleSnapshotPicksHighestSurvivor(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, _, err := s.StaleSnapshot(ctx, 9)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSnapshot(ctx, 9, 37, entry("old")))
	require.NoError(t, s.SaveSnapshot(ctx, 9, 39, entry("newer")))
	// A different school's snapshots never leak into the scan.
	require.NoError(t, s.SaveSnapshot(ctx, 91, 99, entry("other")))

	rev, got, err := s.StaleSnapshot(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(39), rev)
	assert.DeepEqual(t, []byte("newer"), got.Body)
}

func TestBuildLockSingleFlight(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	token, ok, err := s.AcquireBuildLock(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, true, ok)
	require.NotEqual(t, "", token)

	_, ok, err = s.AcquireBuildLock(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, false, ok)

	// A stranger's token cannot release the lock.
	require.NoError(t, s.ReleaseBuildLock(ctx, 4, "not-the-token"))
	_, ok, err = s.AcquireBuildLock(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, false, ok)

	require.NoError(t, s.ReleaseBuildLock(ctx, 4, token))
	_, ok, err = s.AcquireBuildLock(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, true, ok)

	// TTL expiry frees the lock without a release.
	mr.FastForward(params.DisplayConfig().BuildLockTTL + time.Second)
	_, ok, err = s.AcquireBuildLock(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, true, ok)
}

func TestRateCountFixedWindow(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.RateCount(ctx, "TK1", "D1")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// A different device has an independent counter.
	n, err := s.RateCount(ctx, "TK1", "D2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(params.DisplayConfig().StatusRateWindow + time.Millisecond)

	n, err = s.RateCount(ctx, "TK1", "D1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPublishSubscribeInvalidate(t *testing.T) {
	s, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, closeSub := s.SubscribeInvalidate(ctx)
	defer func() {
		require.NoError(t, closeSub())
	}()

	require.NoError(t, s.PublishInvalidate(ctx, 5, 123))

	select {
	case inv := <-sub:
		assert.Equal(t, "invalidate", inv.Type)
		assert.Equal(t, int64(5), inv.SchoolID)
		assert.Equal(t, int64(123), inv.Revision)
		assert.NotEqual(t, int64(0), inv.Ts)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for invalidation")
	}
}

func TestSubscribeInvalidate_DropsMalformedPayloads(t *testing.T) {
	s, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, closeSub := s.SubscribeInvalidate(ctx)
	defer func() {
		require.NoError(t, closeSub())
	}()

	// Raw junk on the channel must not kill the subscriber loop.
	require.NoError(t, s.client.Publish(ctx, channelName(5), "{not json").Err())
	require.NoError(t, s.PublishInvalidate(ctx, 5, 7))

	select {
	case inv := <-sub:
		assert.Equal(t, int64(7), inv.Revision)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for invalidation")
	}
}

func TestRevisionKeyParsing(t *testing.T) {
	rev, err := revFromSnapKey("snap:12:42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rev)

	_, err = revFromSnapKey("snap:12:")
	require.NotNil(t, err)

	school, err := schoolFromChannel("school:31")
	require.NoError(t, err)
	assert.Equal(t, int64(31), school)
}
