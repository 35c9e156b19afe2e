package params

import "time"

// MinimalConfig returns a config with aggressively shortened timings,
// suitable for tests that exercise debounce, lock expiry and polling
// without waiting on production intervals.
func MinimalConfig() *SchoolDisplayConfig {
	minimal := ProductionConfig().Copy()

	minimal.BumpDebounceTTL = 100 * time.Millisecond
	minimal.RevisionKeyTTL = time.Hour
	minimal.SnapshotTTL = time.Minute
	minimal.BuildLockTTL = 2 * time.Second
	minimal.BuildWaitPoll = 10 * time.Millisecond
	minimal.BuildWaitMax = 300 * time.Millisecond

	minimal.StatusRateWindow = 200 * time.Millisecond
	minimal.TokenCacheTTL = time.Second
	minimal.TokenNegativeCacheTTL = time.Second

	minimal.WSPingInterval = 200 * time.Millisecond
	minimal.WSReadTimeout = 600 * time.Millisecond
	minimal.WSWriteTimeout = time.Second
	minimal.InvalidatePollDelay = 20 * time.Millisecond
	minimal.RateLimitedBackoff = 100 * time.Millisecond

	minimal.FirstLoadTimeout = time.Second
	minimal.SteadyTimeout = time.Second
	minimal.FirstLoadRetryBase = 20 * time.Millisecond
	minimal.FirstLoadRetryMax = 200 * time.Millisecond
	minimal.StatusPollActive = 50 * time.Millisecond
	minimal.StatusPollIdle = 100 * time.Millisecond
	minimal.StatusPollActiveMax = 200 * time.Millisecond
	minimal.StatusPollIdleMax = 400 * time.Millisecond

	minimal.DriftCheckInterval = 20 * time.Millisecond
	minimal.DriftPollThrottle = 100 * time.Millisecond

	minimal.TransitionWindow = 300 * time.Millisecond
	minimal.TransitionPollInterval = 30 * time.Millisecond
	minimal.TransitionStaggerMax = 10 * time.Millisecond

	minimal.WSReconnectBase = 10 * time.Millisecond
	minimal.WSReconnectMax = 100 * time.Millisecond

	return minimal
}

// UseMinimalConfig for display services.
func UseMinimalConfig() {
	displayConfig = MinimalConfig()
}
