package client

import (
	"hash/fnv"
	"testing"
	"time"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/testing/assert"
)

func overrideBackoffConfig(t *testing.T, tune func(*params.SchoolDisplayConfig)) {
	params.SetupTestConfigCleanup(t)
	cfg := agentTestConfig()
	if tune != nil {
		tune(cfg)
	}
	params.OverrideDisplayConfig(cfg)
}

func TestJitter_Bounds(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.PollJitter = 0.25
	})
	varied := false
	for i := 0; i < 200; i++ {
		d := jitter(time.Second)
		if d < 750*time.Millisecond || d > 1250*time.Millisecond {
			t.Fatalf("jitter escaped its bounds: %v", d)
		}
		if d != time.Second {
			varied = true
		}
	}
	assert.Equal(t, true, varied, "jitter should actually spread values")
}

func TestPollInterval_ActiveGrowth(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.StatusPollActive = 100 * time.Millisecond
		cfg.StatusBackoffActive = 2
		cfg.StatusPollActiveMax = time.Second
	})

	assert.Equal(t, 100*time.Millisecond, pollInterval(true, 0, 0))
	assert.Equal(t, 200*time.Millisecond, pollInterval(true, 0, 1))
	assert.Equal(t, 400*time.Millisecond, pollInterval(true, 0, 2))
	assert.Equal(t, time.Second, pollInterval(true, 0, 4), "growth past the cap clamps to it")
}

func TestPollInterval_SchoolRefreshOverridesActiveBase(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.StatusPollActiveMax = 10 * time.Second
	})
	assert.Equal(t, 2*time.Second, pollInterval(true, 2, 0))
	// The global cap still binds a pathological school setting.
	assert.Equal(t, 10*time.Second, pollInterval(true, 60, 0))
}

func TestPollInterval_IdleGrowth(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.StatusPollIdle = 200 * time.Millisecond
		cfg.StatusBackoffIdle = 2
		cfg.StatusPollIdleMax = 500 * time.Millisecond
	})

	assert.Equal(t, 200*time.Millisecond, pollInterval(false, 0, 0))
	assert.Equal(t, 400*time.Millisecond, pollInterval(false, 0, 1))
	assert.Equal(t, 500*time.Millisecond, pollInterval(false, 0, 2))
	// The refresh setting only applies inside the active window.
	assert.Equal(t, 200*time.Millisecond, pollInterval(false, 2, 0))
}

func TestFirstLoadRetry_Growth(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.FirstLoadRetryBase = 20 * time.Millisecond
		cfg.FirstLoadRetryMult = 1.5
		cfg.FirstLoadRetryMax = 100 * time.Millisecond
	})

	assert.Equal(t, 20*time.Millisecond, firstLoadRetry(0))
	assert.Equal(t, 30*time.Millisecond, firstLoadRetry(1))
	assert.Equal(t, 45*time.Millisecond, firstLoadRetry(2))
	assert.Equal(t, 100*time.Millisecond, firstLoadRetry(10))
}

func TestRateLimitWait_HonorsFloorAndHeader(t *testing.T) {
	overrideBackoffConfig(t, nil)
	floor := params.DisplayConfig().RateLimitedBackoff

	assert.Equal(t, floor, rateLimitWait(0))
	assert.Equal(t, floor, rateLimitWait(floor/2))
	assert.Equal(t, 3*floor, rateLimitWait(3*floor))
}

func TestReconnectDelay_DoublesToCap(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.WSReconnectBase = 10 * time.Millisecond
		cfg.WSReconnectMax = 100 * time.Millisecond
	})

	assert.Equal(t, 10*time.Millisecond, reconnectDelay(1))
	assert.Equal(t, 20*time.Millisecond, reconnectDelay(2))
	assert.Equal(t, 40*time.Millisecond, reconnectDelay(3))
	assert.Equal(t, 80*time.Millisecond, reconnectDelay(4))
	assert.Equal(t, 100*time.Millisecond, reconnectDelay(5))
	assert.Equal(t, 100*time.Millisecond, reconnectDelay(9))
}

func TestTransitionStagger_Bounds(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.TransitionStaggerMax = 16 * time.Second
		cfg.TransitionStaggerMod = 30
	})

	h := fnv.New32a()
	_, _ = h.Write([]byte("dev-a"))
	fixed := time.Duration(int64(h.Sum32())%30) * time.Second

	for i := 0; i < 50; i++ {
		d := transitionStagger("dev-a")
		if d < time.Second+fixed || d > 16*time.Second+fixed {
			t.Fatalf("stagger out of range: %v (device component %v)", d, fixed)
		}
	}
}

func TestTransitionStagger_TinyConfigKeepsFloor(t *testing.T) {
	overrideBackoffConfig(t, func(cfg *params.SchoolDisplayConfig) {
		cfg.TransitionStaggerMax = 10 * time.Millisecond
		cfg.TransitionStaggerMod = 0
	})
	assert.Equal(t, time.Second, transitionStagger("dev-a"))
}
