package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

func TestLoadOrCreateDeviceID_CreatesAndPersists(t *testing.T) {
	dir := t.TempDir()

	id, err := LoadOrCreateDeviceID(dir)
	require.NoError(t, err)
	if len(id) == 0 {
		t.Fatal("expected a generated device id")
	}

	again, err := LoadOrCreateDeviceID(dir)
	require.NoError(t, err)
	assert.Equal(t, id, again, "device id must be stable across restarts")
}

func TestLoadOrCreateDeviceID_TrimsExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "device_id"), []byte("  abc-123\n"), 0600))

	id, err := LoadOrCreateDeviceID(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestClockOffset_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	if _, ok := LoadClockOffset(dir); ok {
		t.Fatal("no offset should load from an empty datadir")
	}

	want := -1500 * time.Millisecond
	require.NoError(t, SaveClockOffset(dir, want))

	got, ok := LoadClockOffset(dir)
	assert.Equal(t, true, ok)
	assert.Equal(t, want, got)
}

func TestClockOffset_GarbageIsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clock_offset"), []byte("not a number"), 0600))

	if _, ok := LoadClockOffset(dir); ok {
		t.Fatal("unparseable offset must not seed the clock")
	}
}
