// Package serverclock keeps device time disciplined to the display API.
// Every status and snapshot response carries the server wall clock; the
// observed offset is blended into the local clock so countdowns agree
// with the school server even on kiosks with drifting RTCs.
package serverclock

import (
	"math"
	"sync"
	"time"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "serverclock")

var (
	mu     sync.RWMutex
	offset time.Duration
	synced bool
)

var offsetHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "display_server_clock_offset_nsec",
	Help: "The absolute delta between the server reported clock and the local system clock.",
	Buckets: []float64{
		float64(50 * time.Millisecond),
		float64(500 * time.Millisecond),
		float64(1 * time.Second),
		float64(5 * time.Second),
		float64(30 * time.Second),
		float64(5 * time.Minute),
	},
})

// Observe feeds one server timestamp sample, paired with the local time the
// response was received. The first sample is adopted outright; later samples
// are blended in, except large skews which reset the offset immediately.
func Observe(serverTimeMS int64, receivedAt time.Time) {
	sample := time.UnixMilli(serverTimeMS).Sub(receivedAt)
	offsetHistogram.Observe(math.Abs(float64(sample)))

	cfg := params.DisplayConfig()
	mu.Lock()
	defer mu.Unlock()
	switch {
	case !synced:
		offset = sample
		synced = true
	case absDuration(sample-offset) > cfg.ClockSnapThreshold:
		log.WithFields(logrus.Fields{
			"previousOffset": offset,
			"sample":         sample,
		}).Warn("Server clock moved beyond the snap threshold, resetting offset")
		offset = sample
	default:
		weight := cfg.ClockEMAWeight
		offset = offset + time.Duration(weight*float64(sample-offset))
	}
}

// Seed installs a persisted offset ahead of the first live sample, so a
// reloading device starts disciplined. Once a live sample has been observed
// the seed is ignored.
func Seed(persisted time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if synced {
		return
	}
	offset = persisted
	synced = true
}

// Now returns the current local time adjusted by the server offset.
func Now() time.Time {
	return time.Now().Add(Offset())
}

// Offset returns the active server clock offset.
func Offset() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return offset
}

// Synced reports whether at least one server sample has been observed.
func Synced() bool {
	mu.RLock()
	defer mu.RUnlock()
	return synced
}

// Since returns the duration since t, based on the server adjusted clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// Until returns the duration until t, based on the server adjusted clock.
func Until(t time.Time) time.Duration {
	return t.Sub(Now())
}

// Reset clears the offset state. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	offset = 0
	synced = false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
