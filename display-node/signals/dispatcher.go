// Package signals is the write-side entry point of the invalidation fabric.
// Anything that edits school content funnels through a Dispatcher, which
// tags the change and asks the revision registry for a (debounced) bump.
// Dispatch is meant to run after the editing transaction commits; the
// AfterCommit queue gives callers that ordering.
package signals

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "signals")

// Change reasons carried into bump logs and metrics.
const (
	ReasonSchedule      = "schedule"
	ReasonAnnouncements = "announcements"
	ReasonSettings      = "settings"
	ReasonRoster        = "roster"
	ReasonTemplate      = "template"
)

// Bumper advances a school's revision.
type Bumper interface {
	Bump(ctx context.Context, school int64, reason string) (int64, bool, error)
}

// Dispatcher resolves edits to revision bumps.
type Dispatcher struct {
	reg Bumper
}

// NewDispatcher builds a dispatcher over the registry.
func NewDispatcher(reg Bumper) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// ScheduleChanged covers timetable edits: periods, breaks, day activation.
func (d *Dispatcher) ScheduleChanged(ctx context.Context, school int64) error {
	return d.bump(ctx, school, ReasonSchedule)
}

// AnnouncementsChanged covers announcement and excellence board edits.
func (d *Dispatcher) AnnouncementsChanged(ctx context.Context, school int64) error {
	return d.bump(ctx, school, ReasonAnnouncements)
}

// SettingsChanged covers presentation settings edits.
func (d *Dispatcher) SettingsChanged(ctx context.Context, school int64) error {
	return d.bump(ctx, school, ReasonSettings)
}

// RosterChanged covers dated standby and duty assignment edits.
func (d *Dispatcher) RosterChanged(ctx context.Context, school int64) error {
	return d.bump(ctx, school, ReasonRoster)
}

// TemplateChanged fans a shared template edit out to every school using it.
// One school failing does not stop the rest; the first failure is returned.
func (d *Dispatcher) TemplateChanged(ctx context.Context, schools ...int64) error {
	var firstErr error
	for _, school := range schools {
		if err := d.bump(ctx, school, ReasonTemplate); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.WithError(err).WithField("school", school).Error("Could not dispatch template change")
		}
	}
	return firstErr
}

func (d *Dispatcher) bump(ctx context.Context, school int64, reason string) error {
	if _, _, err := d.reg.Bump(ctx, school, reason); err != nil {
		return errors.Wrapf(err, "could not dispatch %s change for school %d", reason, school)
	}
	return nil
}

// AfterCommit queues dispatch callbacks until the surrounding database
// transaction settles. Commit fires the callbacks in the order deferred;
// Rollback drops them. The zero value is ready to use.
type AfterCommit struct {
	mu  sync.Mutex
	fns []func()
}

// Defer queues fn to run on Commit.
func (a *AfterCommit) Defer(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fns = append(a.fns, fn)
}

// Commit runs and clears the queued callbacks.
func (a *AfterCommit) Commit() {
	a.mu.Lock()
	fns := a.fns
	a.fns = nil
	a.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Rollback drops the queued callbacks without running them.
func (a *AfterCommit) Rollback() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fns = nil
}
