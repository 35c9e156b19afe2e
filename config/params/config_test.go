package params

import (
	"testing"
	"time"

	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

func TestOverrideDisplayConfig(t *testing.T) {
	SetupTestConfigCleanup(t)
	cfg := DisplayConfig().Copy()
	cfg.BumpDebounceTTL = 42 * time.Second
	OverrideDisplayConfig(cfg)
	assert.Equal(t, 42*time.Second, DisplayConfig().BumpDebounceTTL)
}

func TestCopyDoesNotAliasActiveConfig(t *testing.T) {
	SetupTestConfigCleanup(t)
	cfg := DisplayConfig().Copy()
	cfg.StatusRateLimit = 99
	require.NotEqual(t, 99, DisplayConfig().StatusRateLimit)
}

func TestMinimalConfigShortensTimings(t *testing.T) {
	minimal := MinimalConfig()
	prod := ProductionConfig()
	assert.Equal(t, true, minimal.BumpDebounceTTL < prod.BumpDebounceTTL)
	assert.Equal(t, true, minimal.BuildLockTTL < prod.BuildLockTTL)
	// Ratios used by the backoff math carry over untouched.
	assert.Equal(t, prod.StatusBackoffActive, minimal.StatusBackoffActive)
	assert.Equal(t, prod.PollJitter, minimal.PollJitter)
}
