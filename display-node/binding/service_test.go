package binding

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/db"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

type fakeStore struct {
	mu      sync.Mutex
	screen  *db.Screen
	rival   string
	reads   int
	claims  int
	touches int
}

func (f *fakeStore) ScreenByToken(_ context.Context, token string) (*db.Screen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.screen == nil || f.screen.Token != token {
		return nil, db.ErrNotFound
	}
	cp := *f.screen
	return &cp, nil
}

func (f *fakeStore) ClaimScreen(_ context.Context, _ int64, device string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	if f.rival != "" {
		// Another caller swept in between the read and the update.
		f.screen.BoundDeviceID = sql.NullString{String: f.rival, Valid: true}
		return false, nil
	}
	if f.screen.BoundDeviceID.Valid {
		return false, nil
	}
	f.screen.BoundDeviceID = sql.NullString{String: device, Valid: true}
	return true, nil
}

func (f *fakeStore) TouchScreen(_ context.Context, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	return nil
}

func (f *fakeStore) UnbindScreen(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.screen == nil || f.screen.Token != token {
		return false, nil
	}
	f.screen.BoundDeviceID = sql.NullString{}
	return true, nil
}

func setupBinding(t *testing.T) (*Service, *fakeStore) {
	params.SetupTestConfigCleanup(t)
	params.OverrideDisplayConfig(params.MinimalConfig())
	store := &fakeStore{
		screen: &db.Screen{ID: 11, Token: "tok-a", SchoolID: 7, IsActive: true},
	}
	return NewService(store), store
}

func TestAuthorize_ClaimsUnboundScreen(t *testing.T) {
	svc, store := setupBinding(t)

	id, err := svc.Authorize(context.Background(), "tok-a", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(11), id.ScreenID)
	assert.Equal(t, int64(7), id.SchoolID)
	assert.Equal(t, "dev-1", id.BoundDevice)
	assert.Equal(t, 1, store.claims)
}

func TestAuthorize_MemoSkipsDatabase(t *testing.T) {
	svc, store := setupBinding(t)
	store.screen.BoundDeviceID = sql.NullString{String: "dev-1", Valid: true}

	for i := 0; i < 5; i++ {
		_, err := svc.Authorize(context.Background(), "tok-a", "dev-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.reads, "steady state must be answered from the memo")
	assert.Equal(t, 0, store.claims)
}

func TestAuthorize_UnknownTokenNegativeCached(t *testing.T) {
	svc, store := setupBinding(t)

	_, err := svc.Authorize(context.Background(), "no-such", "dev-1")
	assert.ErrorIs(t, err, ErrScreenUnknown)
	_, err = svc.Authorize(context.Background(), "no-such", "dev-1")
	assert.ErrorIs(t, err, ErrScreenUnknown)
	assert.Equal(t, 1, store.reads, "unknown tokens must not hit the database twice")
}

func TestAuthorize_DeviceRequired(t *testing.T) {
	svc, _ := setupBinding(t)

	_, err := svc.Authorize(context.Background(), "tok-a", "")
	assert.ErrorIs(t, err, ErrDeviceRequired)
}

func TestAuthorize_BoundToOtherDevice(t *testing.T) {
	svc, store := setupBinding(t)
	store.screen.BoundDeviceID = sql.NullString{String: "dev-1", Valid: true}

	_, err := svc.Authorize(context.Background(), "tok-a", "dev-2")
	assert.ErrorIs(t, err, ErrScreenBound)
	assert.Equal(t, 0, store.claims, "a bound screen must not trigger a claim attempt")
}

func TestAuthorize_LostClaimRace(t *testing.T) {
	svc, store := setupBinding(t)
	store.rival = "dev-9"

	_, err := svc.Authorize(context.Background(), "tok-a", "dev-1")
	assert.ErrorIs(t, err, ErrScreenBound)

	// The memo learned the winner during the re-read, so the winning device
	// authorizes without another database round trip.
	reads := store.reads
	id, err := svc.Authorize(context.Background(), "tok-a", "dev-9")
	require.NoError(t, err)
	assert.Equal(t, "dev-9", id.BoundDevice)
	assert.Equal(t, reads, store.reads)
}

func TestAuthorize_SameDeviceRace(t *testing.T) {
	svc, store := setupBinding(t)
	store.rival = "dev-1"

	id, err := svc.Authorize(context.Background(), "tok-a", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", id.BoundDevice)
}

func TestAuthorize_MultiDeviceMode(t *testing.T) {
	resetFn := features.InitWithReset(&features.Flags{AllowMultiDevice: true, WSEnabled: true})
	defer resetFn()
	svc, store := setupBinding(t)
	store.screen.BoundDeviceID = sql.NullString{String: "dev-1", Valid: true}

	_, err := svc.Authorize(context.Background(), "tok-a", "dev-2")
	require.NoError(t, err)
	assert.Equal(t, 0, store.claims)
}

func TestUnbind_DropsMemo(t *testing.T) {
	svc, _ := setupBinding(t)

	_, err := svc.Authorize(context.Background(), "tok-a", "dev-1")
	require.NoError(t, err)

	ok, err := svc.Unbind(context.Background(), "tok-a")
	require.NoError(t, err)
	assert.Equal(t, true, ok)

	// The next device re-reads the database and claims the freed screen.
	id, err := svc.Authorize(context.Background(), "tok-a", "dev-2")
	require.NoError(t, err)
	assert.Equal(t, "dev-2", id.BoundDevice)
}

func TestMarkSeen_Debounced(t *testing.T) {
	svc, store := setupBinding(t)

	id, err := svc.Authorize(context.Background(), "tok-a", "dev-1")
	require.NoError(t, err)
	svc.MarkSeen(context.Background(), id)
	svc.MarkSeen(context.Background(), id)
	svc.MarkSeen(context.Background(), id)
	assert.Equal(t, 1, store.touches)
}
