// Package client runs the device side of the snapshot fabric: boot, the
// status-first poll loop, snapshot application, socket-assisted invalidation,
// transition bursts around period boundaries, clock discipline and the
// terminal blocker states. All of it feeds a renderer through a single
// updates channel; none of it ever blocks on the renderer.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	nodeapi "github.com/azzam1122112-dot/school-display/api/client/display"
	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/async"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/time/serverclock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "agent")

var (
	statusPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "display_agent_status_polls_total",
		Help: "Status polls by outcome.",
	}, []string{"outcome"})
	snapshotsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_agent_snapshots_applied_total",
		Help: "Snapshot documents decoded and handed to the renderer.",
	})
	socketInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_agent_socket_invalidations_total",
		Help: "Invalidation pushes accepted from the socket.",
	})
)

// never parks a timer that has nothing scheduled.
const never = time.Duration(1<<62 - 1)

// NodeClient is the slice of the display API client the runtime drives.
type NodeClient interface {
	Status(ctx context.Context, known int64) (*nodeapi.Status, error)
	Snapshot(ctx context.Context, opts nodeapi.SnapshotOpts) (*nodeapi.Snapshot, error)
	SocketURL() string
}

// Update is one state change pushed to the renderer: a freshly applied
// document, or a terminal refusal that needs operator attention.
type Update struct {
	Doc       *api.Document
	Revision  int64
	Source    api.CacheSource
	Stale     bool
	AppliedAt time.Time
	Blocked   *nodeapi.BindingError
}

// Config wires a runtime to one screen.
type Config struct {
	Node     NodeClient
	DataDir  string
	DeviceID string
	// DisableSocket keeps the runtime on polling alone even when the school
	// has the push plane enabled.
	DisableSocket bool
}

// Runtime drives one screen. All poll state lives on the run goroutine; the
// renderer observes it through Updates and the node observes nothing.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config

	updates      chan *Update
	socketEvents chan int64
	driftKicks   chan struct{}
	runDone      chan struct{}

	// Owned by the run goroutine.
	doc        *api.Document
	revision   int64
	etag       string
	streak     int
	inBurst    bool
	burstUntil time.Time

	mu      sync.RWMutex
	started bool
	blocked *nodeapi.BindingError
	loaded  bool
}

// NewRuntime builds a stopped runtime. Call Start to boot it.
func NewRuntime(ctx context.Context, cfg *Config) *Runtime {
	ctx, cancel := context.WithCancel(ctx)
	return &Runtime{
		ctx:          ctx,
		cancel:       cancel,
		cfg:          cfg,
		updates:      make(chan *Update, 1),
		socketEvents: make(chan int64, 8),
		driftKicks:   make(chan struct{}, 1),
		runDone:      make(chan struct{}),
		revision:     nodeapi.NoRevision,
	}
}

// Updates delivers applied documents to the renderer. Only the newest update
// is retained when the consumer lags; a display only ever wants the present.
func (r *Runtime) Updates() <-chan *Update {
	return r.updates
}

// Start seeds the clock from the persisted offset, then launches the poll
// loop, the drift watchdog and the offset persister.
func (r *Runtime) Start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	if off, ok := LoadClockOffset(r.cfg.DataDir); ok {
		serverclock.Seed(off)
		log.WithField("offset", off).Debug("Seeded server clock from datadir")
	}
	go r.run()
	go r.watchDrift()
	async.RunEvery(r.ctx, time.Minute, r.persistOffset)
}

// Stop ends the poll loop and, when it was ever started, waits for it to
// unwind.
func (r *Runtime) Stop() error {
	r.cancel()
	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()
	if started {
		<-r.runDone
	}
	return nil
}

// Status reports runtime health: a terminal refusal is an error, and so is
// still waiting on the first snapshot.
func (r *Runtime) Status() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.blocked != nil {
		return r.blocked
	}
	if !r.loaded {
		return errors.New("first snapshot pending")
	}
	return nil
}

func (r *Runtime) run() {
	defer close(r.runDone)
	defer r.persistOffset()

	if !r.firstLoad() {
		return
	}

	if r.doc.Meta.WSEnabled && !r.cfg.DisableSocket {
		go newSocket(r.cfg.Node.SocketURL(), r.socketEvents).run(r.ctx)
	}

	poll := time.NewTimer(r.steadyInterval())
	boundary := time.NewTimer(never)
	defer poll.Stop()
	defer boundary.Stop()
	r.armBoundary(boundary)

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-poll.C:
			delay := r.tick(boundary)
			if r.isBlocked() {
				return
			}
			resetTimer(poll, delay)
		case rev := <-r.socketEvents:
			if rev <= r.revision {
				continue
			}
			socketInvalidations.Inc()
			log.WithField("revision", rev).Debug("Invalidation pushed over socket")
			resetTimer(poll, jitter(params.DisplayConfig().InvalidatePollDelay))
		case <-r.driftKicks:
			log.Info("Clock jump detected, forcing a poll")
			resetTimer(poll, 0)
		case <-boundary.C:
			r.inBurst = true
			r.burstUntil = time.Now().Add(params.DisplayConfig().TransitionWindow)
			log.Debug("Boundary reached, entering transition burst")
			resetTimer(poll, 0)
		}
	}
}

// firstLoad fetches the boot snapshot, retrying with growing backoff until it
// lands, the context ends, or the node refuses the screen outright.
func (r *Runtime) firstLoad() bool {
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(r.ctx, params.DisplayConfig().FirstLoadTimeout)
		snap, err := r.cfg.Node.Snapshot(ctx, nodeapi.SnapshotOpts{})
		cancel()
		if err == nil {
			err = r.apply(snap)
			if err == nil {
				log.WithField("revision", r.revision).Info("First snapshot applied")
				return true
			}
		}
		if r.terminal(err) {
			return false
		}
		if r.ctx.Err() != nil {
			return false
		}

		delay := firstLoadRetry(attempt)
		var rl *nodeapi.RateLimitError
		if errors.As(err, &rl) {
			delay = rateLimitWait(rl.RetryAfter)
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("First snapshot fetch failed, retrying")
		if !sleepCtx(r.ctx, delay) {
			return false
		}
	}
}

// tick runs one scheduled poll and returns the next delay. Inside a
// transition burst the poll goes straight to the snapshot route; otherwise
// status runs first and the snapshot is fetched only on fetch_required.
func (r *Runtime) tick(boundary *time.Timer) time.Duration {
	if r.inBurst {
		return r.burstTick(boundary)
	}

	ctx, cancel := context.WithTimeout(r.ctx, params.DisplayConfig().SteadyTimeout)
	st, err := r.cfg.Node.Status(ctx, r.revision)
	cancel()
	if err != nil {
		return r.pollFailure(err)
	}
	if !st.Changed {
		statusPolls.WithLabelValues("unchanged").Inc()
		r.streak++
		return r.steadyInterval()
	}

	statusPolls.WithLabelValues("changed").Inc()
	r.streak = 0
	if err := r.fetch(boundary, false, st.Revision); err != nil {
		return r.fetchFailure(err)
	}
	return r.steadyInterval()
}

// burstTick polls the snapshot route directly until the served state has
// moved past the boundary or the window closes.
func (r *Runtime) burstTick(boundary *time.Timer) time.Duration {
	err := r.fetch(boundary, true, r.revision)
	if r.isBlocked() {
		return 0
	}
	if err == nil && r.doc.State.RemainingSeconds > 0 {
		r.inBurst = false
		log.Debug("Transition settled")
		return r.steadyInterval()
	}
	if err != nil && !errors.Is(err, nodeapi.ErrNotModified) {
		log.WithError(err).Debug("Transition fetch failed")
	}
	if time.Now().After(r.burstUntil) {
		r.inBurst = false
		return r.steadyInterval()
	}
	return jitter(params.DisplayConfig().TransitionPollInterval)
}

// fetch pulls the snapshot conditionally and applies it. A 304 keeps the
// current document and just adopts the target revision; it is not a failure.
func (r *Runtime) fetch(boundary *time.Timer, transition bool, target int64) error {
	ctx, cancel := context.WithTimeout(r.ctx, params.DisplayConfig().SteadyTimeout)
	snap, err := r.cfg.Node.Snapshot(ctx, nodeapi.SnapshotOpts{ETag: r.etag, Transition: transition})
	cancel()
	if errors.Is(err, nodeapi.ErrNotModified) {
		if target > r.revision {
			r.revision = target
		}
		return err
	}
	if err != nil {
		return err
	}
	if err := r.apply(snap); err != nil {
		return err
	}
	r.armBoundary(boundary)
	return nil
}

// apply decodes and installs a snapshot document and hands it to the
// renderer.
func (r *Runtime) apply(snap *nodeapi.Snapshot) error {
	doc := &api.Document{}
	if err := json.Unmarshal(snap.Body, doc); err != nil {
		return errors.Wrap(err, "could not decode snapshot document")
	}

	r.doc = doc
	r.revision = snap.Revision
	if r.revision == 0 {
		r.revision = doc.Meta.ScheduleRevision
	}
	r.etag = snap.ETag

	r.mu.Lock()
	r.loaded = true
	r.mu.Unlock()

	snapshotsApplied.Inc()
	r.publish(&Update{
		Doc:       doc,
		Revision:  r.revision,
		Source:    snap.Source,
		Stale:     doc.Meta.IsStale,
		AppliedAt: time.Now(),
	})
	return nil
}

// publish hands an update to the renderer, displacing an unconsumed older
// one.
func (r *Runtime) publish(u *Update) {
	for {
		select {
		case r.updates <- u:
			return
		default:
		}
		select {
		case <-r.updates:
		default:
		}
	}
}

// armBoundary schedules the transition burst for the end of the current
// state. The server's remaining_seconds is trusted only inside the sanity
// window; anything else parks the timer.
func (r *Runtime) armBoundary(boundary *time.Timer) {
	cfg := params.DisplayConfig()
	rem := time.Duration(r.doc.State.RemainingSeconds) * time.Second
	if rem <= 0 || rem > cfg.SanityWindowFuture {
		resetTimer(boundary, never)
		return
	}
	resetTimer(boundary, rem+transitionStagger(r.cfg.DeviceID))
}

func (r *Runtime) pollFailure(err error) time.Duration {
	if r.terminal(err) {
		return 0
	}
	var rl *nodeapi.RateLimitError
	if errors.As(err, &rl) {
		statusPolls.WithLabelValues("rate_limited").Inc()
		log.WithField("retryAfter", rl.RetryAfter).Debug("Status poll rate limited")
		return rateLimitWait(rl.RetryAfter)
	}
	statusPolls.WithLabelValues("error").Inc()
	log.WithError(err).Warn("Status poll failed")
	r.streak++
	return r.steadyInterval()
}

func (r *Runtime) fetchFailure(err error) time.Duration {
	if errors.Is(err, nodeapi.ErrNotModified) {
		return r.steadyInterval()
	}
	if r.terminal(err) {
		return 0
	}
	var rl *nodeapi.RateLimitError
	if errors.As(err, &rl) {
		return rateLimitWait(rl.RetryAfter)
	}
	var busy *nodeapi.BuildBusyError
	if errors.As(err, &busy) {
		wait := busy.RetryAfter
		if wait <= 0 {
			wait = params.DisplayConfig().RateLimitedBackoff
		}
		log.WithField("retryAfter", wait).Debug("Snapshot build busy")
		return jitter(wait)
	}
	log.WithError(err).Warn("Snapshot fetch failed")
	r.streak++
	return r.steadyInterval()
}

// terminal recognizes the 403 taxonomy: every code in it is permanent for
// this (token, device) pair, so the loop parks and surfaces a blocker.
func (r *Runtime) terminal(err error) bool {
	var be *nodeapi.BindingError
	if !errors.As(err, &be) {
		return false
	}
	r.mu.Lock()
	r.blocked = be
	r.mu.Unlock()
	log.WithField("code", be.Code).Error("Node refused this screen, operator action required")
	r.publish(&Update{Blocked: be, AppliedAt: time.Now()})
	return true
}

func (r *Runtime) isBlocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blocked != nil
}

func (r *Runtime) steadyInterval() time.Duration {
	return pollInterval(r.activeWindow(), r.doc.Settings.RefreshIntervalSec, r.streak)
}

// activeWindow reports whether the school day (plus margins) is in progress,
// judged on the synced clock against the window the node computed. Window
// bounds are wall-clock "HH:MM" in the school's zone; the zone offset rides
// in on the document's now field.
func (r *Runtime) activeWindow() bool {
	m := r.doc.Meta
	if m.ActiveWindow == nil {
		return m.IsActiveWindow
	}
	start, ok1 := minutesOfDay(m.ActiveWindow.Start)
	end, ok2 := minutesOfDay(m.ActiveWindow.End)
	if !ok1 || !ok2 {
		return m.IsActiveWindow
	}
	now := serverclock.Now()
	if built, err := time.Parse(time.RFC3339, r.doc.Now); err == nil {
		now = now.In(built.Location())
	}
	cur := now.Hour()*60 + now.Minute()
	return cur >= start && cur < end
}

func minutesOfDay(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// watchDrift detects wall clock jumps (suspend/resume, NTP steps) and forces
// a poll, throttled so a flapping clock cannot hammer the node.
func (r *Runtime) watchDrift() {
	cfg := params.DisplayConfig()
	throttle := async.NewDebouncer(cfg.DriftPollThrottle)
	last := time.Now()
	async.RunEvery(r.ctx, cfg.DriftCheckInterval, func() {
		now := time.Now()
		gap := now.Sub(last)
		last = now
		if gap > cfg.DriftCheckInterval+cfg.DriftJumpThreshold && throttle.Try() {
			select {
			case r.driftKicks <- struct{}{}:
			default:
			}
		}
	})
}

func (r *Runtime) persistOffset() {
	if !serverclock.Synced() {
		return
	}
	if err := SaveClockOffset(r.cfg.DataDir, serverclock.Offset()); err != nil {
		log.WithError(err).Debug("Could not persist clock offset")
	}
}

// resetTimer stops, drains and rearms a timer. Safe on fired and unfired
// timers alike as long as the owning goroutine is the only reader of C.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
