// Package wsstats tracks the health of the WebSocket push plane. The display
// API exposes its report on /api/display/ws-metrics/ so operators can tell
// at a glance whether screens are actually receiving pushes or silently
// falling back to polling.
package wsstats

import (
	"context"
	"sync"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/async"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "wsstats")

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "display_ws_connections_active",
		Help: "Currently connected display sockets.",
	})
	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_ws_connections_total",
		Help: "Accepted display sockets since start.",
	})
	connectionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_ws_connections_failed_total",
		Help: "Socket handshakes rejected or dropped during setup.",
	})
	broadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_ws_broadcasts_sent_total",
		Help: "Invalidation frames delivered to client queues.",
	})
	broadcastsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_ws_broadcasts_failed_total",
		Help: "Invalidation frames dropped on full or dead clients.",
	})
	broadcastLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "display_ws_broadcast_latency_seconds",
		Help:    "Fan-out time from invalidation receipt to queue handoff.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
)

// Tracker accumulates push plane counters. All methods are safe for
// concurrent use; reads produce a consistent snapshot.
type Tracker struct {
	mu                sync.Mutex
	connectionsActive int64
	connectionsTotal  int64
	connectionsFailed int64
	broadcastsSent    int64
	broadcastsFailed  int64
	latencySumMS      float64
	latencyCount      int64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// ConnOpened records an accepted socket.
func (t *Tracker) ConnOpened() {
	t.mu.Lock()
	t.connectionsActive++
	t.connectionsTotal++
	t.mu.Unlock()
	connectionsActive.Inc()
	connectionsTotal.Inc()
}

// ConnClosed records a socket teardown.
func (t *Tracker) ConnClosed() {
	t.mu.Lock()
	if t.connectionsActive > 0 {
		t.connectionsActive--
	}
	t.mu.Unlock()
	connectionsActive.Dec()
}

// ConnFailed records a rejected or broken handshake.
func (t *Tracker) ConnFailed() {
	t.mu.Lock()
	t.connectionsFailed++
	t.mu.Unlock()
	connectionsFailed.Inc()
}

// BroadcastSent records one delivered invalidation and its fan-out time.
func (t *Tracker) BroadcastSent(latency time.Duration) {
	ms := float64(latency.Microseconds()) / 1000
	t.mu.Lock()
	t.broadcastsSent++
	t.latencySumMS += ms
	t.latencyCount++
	t.mu.Unlock()
	broadcastsSent.Inc()
	broadcastLatency.Observe(latency.Seconds())
}

// BroadcastFailed records one dropped invalidation frame.
func (t *Tracker) BroadcastFailed() {
	t.mu.Lock()
	t.broadcastsFailed++
	t.mu.Unlock()
	broadcastsFailed.Inc()
}

// Report snapshots the counters and derives the health verdict.
func (t *Tracker) Report() display.WSMetricsReport {
	t.mu.Lock()
	r := display.WSMetricsReport{
		ConnectionsActive:     t.connectionsActive,
		ConnectionsTotal:      t.connectionsTotal,
		ConnectionsFailed:     t.connectionsFailed,
		BroadcastsSent:        t.broadcastsSent,
		BroadcastsFailed:      t.broadcastsFailed,
		BroadcastLatencySumMS: t.latencySumMS,
		BroadcastLatencyCount: t.latencyCount,
	}
	t.mu.Unlock()

	if r.BroadcastLatencyCount > 0 {
		r.AvgLatencyMS = r.BroadcastLatencySumMS / float64(r.BroadcastLatencyCount)
	}
	r.Health = verdict(r)
	return r
}

// verdict grades the report. Critical means the plane is effectively down
// for a meaningful share of devices; warning means it needs a look.
func verdict(r display.WSMetricsReport) string {
	cfg := params.DisplayConfig()
	if r.ConnectionsTotal > 0 {
		failRatio := float64(r.ConnectionsFailed) / float64(r.ConnectionsTotal)
		if failRatio > cfg.WSFailureCriticalRatio {
			return display.HealthCritical
		}
	}
	if r.ConnectionsActive == 0 && r.ConnectionsTotal > cfg.WSIdleWarnMinConnections {
		return display.HealthWarning
	}
	attempts := r.BroadcastsSent + r.BroadcastsFailed
	if attempts > 0 {
		dropRatio := float64(r.BroadcastsFailed) / float64(attempts)
		if dropRatio > cfg.WSBroadcastWarnRatio {
			return display.HealthWarning
		}
	}
	if r.AvgLatencyMS > float64(cfg.WSLatencyWarn.Milliseconds()) {
		return display.HealthWarning
	}
	return display.HealthOK
}

// LogPeriodically emits the report on the given cadence until ctx ends.
func (t *Tracker) LogPeriodically(ctx context.Context, interval time.Duration) {
	async.RunEvery(ctx, interval, func() {
		r := t.Report()
		log.WithFields(logrus.Fields{
			"active":       r.ConnectionsActive,
			"total":        r.ConnectionsTotal,
			"failed":       r.ConnectionsFailed,
			"sent":         r.BroadcastsSent,
			"dropped":      r.BroadcastsFailed,
			"avgLatencyMs": r.AvgLatencyMS,
			"health":       r.Health,
		}).Info("Push plane report")
	})
}
