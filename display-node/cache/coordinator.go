// Package cache is the only snapshot read path the HTTP layer uses. It
// layers an in-process memo over the shared Redis cache and funnels misses
// through a cross-process single-flight build lock, so a cold revision costs
// one database build per school no matter how many screens ask at once.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/crypto/hash"
	"github.com/azzam1122112-dot/school-display/display-node/revision"
	"github.com/azzam1122112-dot/school-display/display-node/snapshot"
	"github.com/azzam1122112-dot/school-display/display-node/store"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "cache")

// ErrBuildUnavailable means no cached document exists and a foreign builder
// holds the lock but has not published within the wait budget. Callers
// answer 503; devices retry on their normal cadence.
var ErrBuildUnavailable = errors.New("snapshot build unavailable")

// staleWarning is embedded in stale documents so screens can show a hint.
const staleWarning = "قد تكون البيانات المعروضة غير محدثة"

var (
	cacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "display_snapshot_cache_reads_total",
		Help: "Snapshot reads by outcome source.",
	}, []string{"source"})
	staleServes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_snapshot_stale_serves_total",
		Help: "Snapshot requests answered with an older revision while a build was in flight.",
	})
)

// DocumentBuilder produces a snapshot document for one (school, revision).
type DocumentBuilder interface {
	Build(ctx context.Context, schoolID, revision int64) (*snapshot.Built, error)
}

// Options shape one read.
type Options struct {
	// Bypass skips the memo and the shared cache read and forces a fresh
	// build. Still serialized by the build lock. Debug surface only.
	Bypass bool
	// Transition skips the in-process memo but reads the shared cache
	// normally. Used around period boundaries where the edge also bypasses.
	Transition bool
}

// Result is one served snapshot.
type Result struct {
	Revision int64
	Body     []byte
	ETag     string
	Source   display.CacheSource
	BuiltMS  int64
}

// Coordinator owns the snapshot read path.
type Coordinator struct {
	reg     *revision.Registry
	store   *store.Store
	builder DocumentBuilder
	memo    *lru.Cache
}

// NewCoordinator builds a coordinator with a memo sized from params.
func NewCoordinator(reg *revision.Registry, st *store.Store, builder DocumentBuilder) (*Coordinator, error) {
	memo, err := lru.New(params.DisplayConfig().SnapshotMemoSize)
	if err != nil {
		return nil, errors.Wrap(err, "could not size snapshot memo")
	}
	return &Coordinator{reg: reg, store: st, builder: builder, memo: memo}, nil
}

func memoKey(school, rev int64) string {
	return fmt.Sprintf("%d:%d", school, rev)
}

func result(rev int64, saved *store.Saved, src display.CacheSource) *Result {
	cacheReads.WithLabelValues(string(src)).Inc()
	return &Result{
		Revision: rev,
		Body:     saved.Body,
		ETag:     saved.ETag,
		Source:   src,
		BuiltMS:  saved.BuiltMS,
	}
}

// Get serves the current revision for a school: memo, shared cache, then a
// single-flight build. When another process is building, a surviving older
// revision is served flagged stale rather than blocking the screen.
func (c *Coordinator) Get(ctx context.Context, school int64, opts Options) (*Result, error) {
	rev, err := c.reg.Current(ctx, school)
	if err != nil {
		return nil, errors.Wrap(err, "could not read current revision")
	}
	key := memoKey(school, rev)

	if !opts.Bypass {
		if !opts.Transition {
			if v, ok := c.memo.Get(key); ok {
				return result(rev, v.(*store.Saved), display.CacheHit), nil
			}
		}
		saved, err := c.store.Snapshot(ctx, school, rev)
		if err == nil {
			c.memo.Add(key, saved)
			return result(rev, saved, display.CacheHit), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	token, acquired, err := c.store.AcquireBuildLock(ctx, school)
	if err != nil {
		return nil, err
	}
	if acquired {
		defer func() {
			if rerr := c.store.ReleaseBuildLock(ctx, school, token); rerr != nil {
				log.WithError(rerr).WithField("school", school).Warn("Could not release build lock")
			}
		}()
		return c.buildAndCache(ctx, school, rev, opts)
	}

	if !opts.Bypass {
		if staleRev, saved, serr := c.store.StaleSnapshot(ctx, school); serr == nil {
			staleServes.Inc()
			cacheReads.WithLabelValues(string(display.CacheStale)).Inc()
			body, etag := markStale(saved.Body)
			return &Result{
				Revision: staleRev,
				Body:     body,
				ETag:     etag,
				Source:   display.CacheStale,
				BuiltMS:  saved.BuiltMS,
			}, nil
		} else if !errors.Is(serr, store.ErrNotFound) {
			log.WithError(serr).WithField("school", school).Warn("Stale snapshot scan failed")
		}
	}

	return c.awaitForeignBuild(ctx, school, rev, key)
}

func (c *Coordinator) buildAndCache(ctx context.Context, school, rev int64, opts Options) (*Result, error) {
	built, err := c.builder.Build(ctx, school, rev)
	if err != nil {
		return nil, errors.Wrap(err, "could not build snapshot")
	}
	saved := &store.Saved{
		Body:    built.Body,
		ETag:    built.ETag,
		BuiltMS: built.BuiltAt.UnixMilli(),
	}
	if err := c.store.SaveSnapshot(ctx, school, rev, saved); err != nil {
		// Serve the build anyway; the next reader rebuilds.
		log.WithError(err).WithField("school", school).Warn("Built snapshot could not be cached")
	}
	c.memo.Add(memoKey(school, rev), saved)
	src := display.CacheMiss
	if opts.Bypass {
		src = display.CacheBypass
	}
	return result(rev, saved, src), nil
}

// awaitForeignBuild polls the shared cache for the lock holder's write.
func (c *Coordinator) awaitForeignBuild(ctx context.Context, school, rev int64, key string) (*Result, error) {
	cfg := params.DisplayConfig()
	deadline := time.Now().Add(cfg.BuildWaitMax)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.BuildWaitPoll):
		}
		saved, err := c.store.Snapshot(ctx, school, rev)
		if err == nil {
			c.memo.Add(key, saved)
			return result(rev, saved, display.CacheHit), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrBuildUnavailable
}

// markStale flags the document so screens can hint that content may lag.
// Marking changes the bytes, so the stored ETag no longer applies and the
// marked body is rehashed. Repeated stale serves of the same revision yield
// the same bytes and therefore the same tag.
func markStale(body []byte) ([]byte, string) {
	var doc display.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		log.WithError(err).Warn("Could not parse cached snapshot for stale marking")
		return body, etagOf(body)
	}
	doc.Meta.IsStale = true
	doc.Meta.StaleWarning = staleWarning
	out, err := json.Marshal(&doc)
	if err != nil {
		return body, etagOf(body)
	}
	return out, etagOf(out)
}

func etagOf(body []byte) string {
	sum := hash.Hash256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
