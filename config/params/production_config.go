package params

import "time"

// ProductionConfig returns the configuration the fabric ships with.
func ProductionConfig() *SchoolDisplayConfig {
	return productionDisplayConfig
}

// UseProductionConfig for display services.
func UseProductionConfig() {
	displayConfig = ProductionConfig()
}

var productionDisplayConfig = &SchoolDisplayConfig{
	// Revision registry.
	BumpDebounceTTL:    2 * time.Second,
	RevisionKeyTTL:     7 * 24 * time.Hour,
	SnapshotTTL:        6 * time.Hour,
	BuildLockTTL:       10 * time.Second,
	BuildWaitPoll:      50 * time.Millisecond,
	BuildWaitMax:       400 * time.Millisecond,
	SnapshotMemoSize:   256,
	SnapshotEdgeMaxAge: 10,

	// Display API.
	StatusRateLimit:       2,
	StatusRateWindow:      time.Second,
	TokenCacheTTL:         time.Hour,
	TokenNegativeCacheTTL: 5 * time.Minute,

	// WebSocket push plane.
	WSPingInterval:      30 * time.Second,
	WSReadTimeout:       90 * time.Second,
	WSWriteTimeout:      10 * time.Second,
	WSChannelCapacity:   2000,
	WSSendBuffer:        8,
	WSMaxMessageSize:    1024,
	WSHandshakeCapacity: 5,
	WSHandshakeRate:     1,

	// Agent polling.
	FirstLoadTimeout:    15 * time.Second,
	SteadyTimeout:       9 * time.Second,
	FirstLoadRetryBase:  2 * time.Second,
	FirstLoadRetryMult:  1.5,
	FirstLoadRetryMax:   30 * time.Second,
	StatusPollActive:    5 * time.Second,
	StatusPollIdle:      60 * time.Second,
	StatusBackoffActive: 1.7,
	StatusBackoffIdle:   2.0,
	StatusPollActiveMax: 45 * time.Second,
	StatusPollIdleMax:   300 * time.Second,
	PollJitter:          0.25,
	InvalidatePollDelay: 500 * time.Millisecond,
	RateLimitedBackoff:  15 * time.Second,

	// Agent clock discipline.
	ClockEMAWeight:     0.2,
	ClockSnapThreshold: 30 * time.Second,
	DriftCheckInterval: time.Second,
	DriftJumpThreshold: 5 * time.Second,
	DriftPollThrottle:  5 * time.Second,
	SanityWindowPast:   12 * time.Hour,
	SanityWindowFuture: 24 * time.Hour,

	// Agent transition handling.
	TransitionWindow:       15 * time.Second,
	TransitionPollInterval: 1200 * time.Millisecond,
	TransitionStaggerMax:   15 * time.Second,
	TransitionStaggerMod:   30,
	ActiveWindowMargin:     30 * time.Minute,

	// Agent socket.
	WSReconnectBase:        time.Second,
	WSReconnectMax:         60 * time.Second,
	WSReconnectMaxAttempts: 10,

	// Agent rendering.
	AnnouncementRotation: 6500 * time.Millisecond,
	ExcellenceRotation:   7 * time.Second,
	RenderFPS:            20,
	LiteRenderFPS:        10,

	// WS health verdicts.
	WSFailureCriticalRatio:   0.10,
	WSBroadcastWarnRatio:     0.05,
	WSLatencyWarn:            100 * time.Millisecond,
	WSIdleWarnMinConnections: 10,
}
