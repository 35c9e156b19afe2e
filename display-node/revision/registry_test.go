package revision

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/store"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/azzam1122112-dot/school-display/testing/util"
)

func setupRegistry(t *testing.T) (*Registry, *store.Store, *miniredis.Miniredis) {
	params.SetupTestConfigCleanup(t)
	params.OverrideDisplayConfig(params.MinimalConfig())
	s, mr := util.SetupStore(t)
	return NewRegistry(s), s, mr
}

func TestBumpThenCurrent(t *testing.T) {
	reg, _, _ := setupRegistry(t)
	ctx := context.Background()

	cur, err := reg.Current(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur)

	rev, bumped, err := reg.Bump(ctx, 5, "schedule")
	require.NoError(t, err)
	assert.Equal(t, true, bumped)
	assert.Equal(t, int64(1), rev)

	cur, err = reg.Current(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cur)
}

func TestBumpCoalescesWithinDebounce(t *testing.T) {
	reg, _, mr := setupRegistry(t)
	ctx := context.Background()

	rev, bumped, err := reg.Bump(ctx, 5, "schedule")
	require.NoError(t, err)
	assert.Equal(t, true, bumped)
	assert.Equal(t, int64(1), rev)

	rev, bumped, err = reg.Bump(ctx, 5, "announcements")
	require.NoError(t, err)
	assert.Equal(t, false, bumped, "a bump inside the debounce window must coalesce")
	assert.Equal(t, int64(1), rev)

	mr.FastForward(params.DisplayConfig().BumpDebounceTTL + 10*time.Millisecond)

	rev, bumped, err = reg.Bump(ctx, 5, "settings")
	require.NoError(t, err)
	assert.Equal(t, true, bumped)
	assert.Equal(t, int64(2), rev)
}

func TestBumpPublishesAfterValueReadable(t *testing.T) {
	reg, s, _ := setupRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeFn := s.SubscribeInvalidate(ctx)
	defer func() {
		require.NoError(t, closeFn())
	}()

	rev, bumped, err := reg.Bump(ctx, 7, "schedule")
	require.NoError(t, err)
	assert.Equal(t, true, bumped)

	select {
	case ev := <-events:
		assert.Equal(t, int64(7), ev.SchoolID)
		assert.Equal(t, rev, ev.Revision)
		// The published revision must already be readable.
		cur, err := reg.Current(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, true, cur >= ev.Revision)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for invalidation")
	}
}

func TestForceSkipsDebounce(t *testing.T) {
	reg, s, _ := setupRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := reg.Bump(ctx, 9, "schedule")
	require.NoError(t, err)

	events, closeFn := s.SubscribeInvalidate(ctx)
	defer func() {
		require.NoError(t, closeFn())
	}()

	// Inside the debounce window, Force still lands and publishes.
	require.NoError(t, reg.Force(ctx, 9, 50))
	cur, err := reg.Current(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(50), cur)

	select {
	case ev := <-events:
		assert.Equal(t, int64(50), ev.Revision)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for forced invalidation")
	}
}
