// Package params defines the tunable constants used across the display
// node and the display agent.
package params

import (
	"time"

	"github.com/mohae/deepcopy"
)

// SchoolDisplayConfig contains the timing and capacity constants the
// snapshot fabric runs on. Values are read at call sites through
// DisplayConfig(), so tests can override them for a single test via
// SetupTestConfigCleanup and OverrideDisplayConfig.
type SchoolDisplayConfig struct {
	// Revision registry.
	BumpDebounceTTL    time.Duration // BumpDebounceTTL coalesces bursts of edits into a single revision bump.
	RevisionKeyTTL     time.Duration // RevisionKeyTTL is refreshed on every revision write.
	SnapshotTTL        time.Duration // SnapshotTTL bounds how long a built snapshot stays addressable.
	BuildLockTTL       time.Duration // BuildLockTTL is the single-flight lease for one snapshot build.
	BuildWaitPoll      time.Duration // BuildWaitPoll is the cache re-check cadence while another process builds.
	BuildWaitMax       time.Duration // BuildWaitMax caps how long a request waits on a foreign build.
	SnapshotMemoSize   int           // SnapshotMemoSize is the per-process LRU entry cap for built snapshots.
	SnapshotEdgeMaxAge int           // SnapshotEdgeMaxAge is the s-maxage (seconds) granted to fresh snapshot responses.

	// Display API.
	StatusRateLimit       int           // StatusRateLimit is the max status polls per window per (token, device).
	StatusRateWindow      time.Duration // StatusRateWindow is the fixed rate limiting window.
	TokenCacheTTL         time.Duration // TokenCacheTTL memoizes token to screen resolution.
	TokenNegativeCacheTTL time.Duration // TokenNegativeCacheTTL memoizes unknown tokens to absorb misconfigured devices.

	// WebSocket push plane.
	WSPingInterval      time.Duration // WSPingInterval is the client application level ping cadence.
	WSReadTimeout       time.Duration // WSReadTimeout reaps connections that stop pinging.
	WSWriteTimeout      time.Duration // WSWriteTimeout bounds a single socket write.
	WSChannelCapacity   int           // WSChannelCapacity is the per-instance concurrent connection cap.
	WSSendBuffer        int           // WSSendBuffer is the per-client outbound queue size before eviction.
	WSMaxMessageSize    int64         // WSMaxMessageSize bounds inbound client frames.
	WSHandshakeCapacity int64         // WSHandshakeCapacity is the per-IP leaky bucket size for upgrades.
	WSHandshakeRate     int64         // WSHandshakeRate is the per-IP bucket refill per second.

	// Agent polling.
	FirstLoadTimeout    time.Duration // FirstLoadTimeout bounds the very first snapshot request.
	SteadyTimeout       time.Duration // SteadyTimeout bounds requests after the first snapshot is applied.
	FirstLoadRetryBase  time.Duration // FirstLoadRetryBase seeds the boot retry backoff.
	FirstLoadRetryMult  float64       // FirstLoadRetryMult grows the boot retry backoff.
	FirstLoadRetryMax   time.Duration // FirstLoadRetryMax caps the boot retry backoff.
	StatusPollActive    time.Duration // StatusPollActive is the base cadence inside the school day window.
	StatusPollIdle      time.Duration // StatusPollIdle is the base cadence outside the school day window.
	StatusBackoffActive float64       // StatusBackoffActive grows the cadence on unchanged polls inside the window.
	StatusBackoffIdle   float64       // StatusBackoffIdle grows the cadence on unchanged polls outside the window.
	StatusPollActiveMax time.Duration // StatusPollActiveMax caps the active cadence.
	StatusPollIdleMax   time.Duration // StatusPollIdleMax caps the idle cadence.
	PollJitter          float64       // PollJitter is the +/- fraction applied to every computed interval.
	InvalidatePollDelay time.Duration // InvalidatePollDelay schedules the fetch after a push invalidation.
	RateLimitedBackoff  time.Duration // RateLimitedBackoff is the minimum wait after a 429.

	// Agent clock discipline.
	ClockEMAWeight     float64       // ClockEMAWeight is the fraction of a fresh offset sample blended in.
	ClockSnapThreshold time.Duration // ClockSnapThreshold forces a hard offset reset on large skew.
	DriftCheckInterval time.Duration // DriftCheckInterval is the wall clock jump detector cadence.
	DriftJumpThreshold time.Duration // DriftJumpThreshold classifies a tick gap as a suspend or clock jump.
	DriftPollThrottle  time.Duration // DriftPollThrottle limits forced polls caused by detected jumps.
	SanityWindowPast   time.Duration // SanityWindowPast bounds how stale a server remaining_seconds may be trusted.
	SanityWindowFuture time.Duration // SanityWindowFuture bounds how far ahead a server remaining_seconds may reach.

	// Agent transition handling.
	TransitionWindow       time.Duration // TransitionWindow is how long accelerated polling lasts after a boundary.
	TransitionPollInterval time.Duration // TransitionPollInterval is the accelerated snapshot cadence.
	TransitionStaggerMax   time.Duration // TransitionStaggerMax bounds the random anti-stampede delay.
	TransitionStaggerMod   int64         // TransitionStaggerMod spreads schools across the boundary by id.
	ActiveWindowMargin     time.Duration // ActiveWindowMargin pads the school day on both sides.

	// Agent socket.
	WSReconnectBase        time.Duration // WSReconnectBase seeds the reconnect backoff.
	WSReconnectMax         time.Duration // WSReconnectMax caps the reconnect backoff.
	WSReconnectMaxAttempts int           // WSReconnectMaxAttempts before the agent falls back to polling only.

	// Agent rendering.
	AnnouncementRotation time.Duration // AnnouncementRotation is the announcement card dwell time.
	ExcellenceRotation   time.Duration // ExcellenceRotation is the excellence card dwell time.
	RenderFPS            int           // RenderFPS caps the terminal renderer frame rate.
	LiteRenderFPS        int           // LiteRenderFPS caps the frame rate in lite mode.

	// WS health verdicts.
	WSFailureCriticalRatio   float64       // WSFailureCriticalRatio marks the push plane critical.
	WSBroadcastWarnRatio     float64       // WSBroadcastWarnRatio marks broadcast delivery degraded.
	WSLatencyWarn            time.Duration // WSLatencyWarn marks the average broadcast flush slow.
	WSIdleWarnMinConnections int64         // WSIdleWarnMinConnections arms the zero-active warning.
}

var displayConfig = ProductionConfig()

// DisplayConfig retrieves the display fabric config.
func DisplayConfig() *SchoolDisplayConfig {
	return displayConfig
}

// OverrideDisplayConfig by replacing the config. The preferred pattern is to
// call DisplayConfig(), change the specific parameters, and then call
// OverrideDisplayConfig(c). Any subsequent calls to params.DisplayConfig()
// will return this new configuration.
func OverrideDisplayConfig(c *SchoolDisplayConfig) {
	displayConfig = c
}

// Copy returns a copy of the config object.
func (c *SchoolDisplayConfig) Copy() *SchoolDisplayConfig {
	config, ok := deepcopy.Copy(*c).(SchoolDisplayConfig)
	if !ok {
		config = *displayConfig
	}
	return &config
}
