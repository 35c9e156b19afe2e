package client

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/crypto/rand"
)

var rng = rand.NewGenerator()

// jitter spreads d by the configured +/- fraction so a fleet of screens never
// settles into lockstep against the node.
func jitter(d time.Duration) time.Duration {
	frac := params.DisplayConfig().PollJitter
	if frac <= 0 || d <= 0 {
		return d
	}
	spread := 1 - frac + 2*frac*rng.Float64()
	return time.Duration(float64(d) * spread)
}

// pollInterval computes the next status poll delay. streak counts consecutive
// unchanged polls. Inside the active window the base cadence follows the
// school's refresh setting; outside it the idle cadence applies.
func pollInterval(active bool, refreshSec, streak int) time.Duration {
	cfg := params.DisplayConfig()
	var base, limit time.Duration
	var factor float64
	if active {
		base = cfg.StatusPollActive
		if refreshSec > 0 {
			base = time.Duration(refreshSec) * time.Second
		}
		factor = cfg.StatusBackoffActive
		limit = cfg.StatusPollActiveMax
	} else {
		base = cfg.StatusPollIdle
		factor = cfg.StatusBackoffIdle
		limit = cfg.StatusPollIdleMax
	}
	d := time.Duration(float64(base) * math.Pow(factor, float64(streak)))
	if d <= 0 || d > limit {
		d = limit
	}
	return jitter(d)
}

// firstLoadRetry grows the boot retry delay geometrically.
func firstLoadRetry(attempt int) time.Duration {
	cfg := params.DisplayConfig()
	d := time.Duration(float64(cfg.FirstLoadRetryBase) * math.Pow(cfg.FirstLoadRetryMult, float64(attempt)))
	if d <= 0 || d > cfg.FirstLoadRetryMax {
		d = cfg.FirstLoadRetryMax
	}
	return jitter(d)
}

// rateLimitWait honors the server's Retry-After but never comes back faster
// than the configured floor.
func rateLimitWait(retryAfter time.Duration) time.Duration {
	floor := params.DisplayConfig().RateLimitedBackoff
	if retryAfter > floor {
		floor = retryAfter
	}
	return jitter(floor)
}

// reconnectDelay doubles the socket redial wait per attempt.
func reconnectDelay(attempt int) time.Duration {
	cfg := params.DisplayConfig()
	d := cfg.WSReconnectBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.WSReconnectMax {
			d = cfg.WSReconnectMax
			break
		}
	}
	return jitter(d)
}

// transitionStagger spreads boundary-triggered refreshes so a whole fleet
// does not rebuild snapshots in the same second. One second of floor, a
// random component, and a deterministic per-device component derived from the
// device id.
func transitionStagger(deviceID string) time.Duration {
	cfg := params.DisplayConfig()
	span := cfg.TransitionStaggerMax - time.Second
	if span < 0 {
		span = 0
	}
	d := time.Second + time.Duration(rng.Int63n(int64(span)+1))
	if cfg.TransitionStaggerMod > 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(deviceID))
		d += time.Duration(int64(h.Sum32())%cfg.TransitionStaggerMod) * time.Second
	}
	return d
}
