// Package revision owns the per-school schedule revision counter and the
// ordering contract around it: a device that hears about revision R can
// immediately read a revision >= R. Bumps are debounced so edit bursts cost
// one invalidation.
package revision

import (
	"context"

	"github.com/azzam1122112-dot/school-display/display-node/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "revision")

var (
	bumps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "display_revision_bumps_total",
		Help: "Revision bump requests by outcome.",
	}, []string{"result"})
	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_invalidate_publish_failures_total",
		Help: "Invalidation publishes that failed after a successful revision write.",
	})
)

// Registry mediates all revision reads and writes.
type Registry struct {
	store *store.Store
}

// NewRegistry builds a registry over the shared store.
func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Current returns the school's revision; an unwritten counter reads as 0.
func (r *Registry) Current(ctx context.Context, school int64) (int64, error) {
	return r.store.Revision(ctx, school)
}

// Bump advances the revision unless a bump landed within the debounce
// window. The invalidation publish happens strictly after the incremented
// value is readable, so subscribers always observe rev >= the published
// value. Publish failures are counted and logged, never surfaced: pollers
// will still pick the new revision up.
func (r *Registry) Bump(ctx context.Context, school int64, reason string) (int64, bool, error) {
	fresh, err := r.store.AcquireBumpDebounce(ctx, school)
	if err != nil {
		return 0, false, errors.Wrap(err, "could not check bump debounce")
	}
	if !fresh {
		cur, err := r.store.Revision(ctx, school)
		if err != nil {
			return 0, false, errors.Wrap(err, "could not read coalesced revision")
		}
		bumps.WithLabelValues("coalesced").Inc()
		log.WithFields(logrus.Fields{
			"school": school,
			"reason": reason,
		}).Debug("Bump coalesced into recent revision")
		return cur, false, nil
	}

	rev, err := r.store.BumpRevision(ctx, school)
	if err != nil {
		bumps.WithLabelValues("error").Inc()
		return 0, false, errors.Wrap(err, "could not bump revision")
	}
	bumps.WithLabelValues("bumped").Inc()
	log.WithFields(logrus.Fields{
		"school":   school,
		"revision": rev,
		"reason":   reason,
	}).Info("Schedule revision bumped")

	r.publish(ctx, school, rev)
	return rev, true, nil
}

// Force overwrites the revision unconditionally and publishes. This is the
// admin and restore path; it skips the debounce.
func (r *Registry) Force(ctx context.Context, school, rev int64) error {
	if err := r.store.SetRevision(ctx, school, rev); err != nil {
		return errors.Wrap(err, "could not set revision")
	}
	log.WithFields(logrus.Fields{
		"school":   school,
		"revision": rev,
	}).Warn("Schedule revision forced")
	r.publish(ctx, school, rev)
	return nil
}

func (r *Registry) publish(ctx context.Context, school, rev int64) {
	if err := r.store.PublishInvalidate(ctx, school, rev); err != nil {
		publishFailures.Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"school":   school,
			"revision": rev,
		}).Warn("Could not publish invalidation")
	}
}
