package display

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/cache"
	"github.com/azzam1122112-dot/school-display/network/httputil"
	"github.com/pkg/errors"
)

// Snapshot serves the full document for the school's current revision.
// Fresh bodies are edge-cacheable for a few seconds keyed by the token in
// the path; stale, bypass and transition responses are not. Conditional
// requests short-circuit on a strong ETag match.
func (s *Server) Snapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	stampClock(w)

	id := s.admit(w, r, "snapshot")
	if id == nil {
		return
	}

	q := r.URL.Query()
	opts := cache.Options{Transition: q.Get("transition") == "1"}
	if q.Get("nocache") == "1" && features.Get().DebugEndpoints {
		opts.Bypass = true
	}

	res, err := s.Snapshots.Get(r.Context(), id.SchoolID, opts)
	if err != nil {
		if errors.Is(err, cache.ErrBuildUnavailable) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			writeError(w, "snapshot", http.StatusServiceUnavailable, api.CodeBuildUnavailable, "snapshot build in progress")
			return
		}
		log.WithError(err).WithField("school", id.SchoolID).Error("Could not serve snapshot")
		writeError(w, "snapshot", http.StatusInternalServerError, api.CodeInternalError, "snapshot unavailable")
		return
	}

	w.Header().Set(api.ScheduleRevisionHeader, strconv.FormatInt(res.Revision, 10))
	w.Header().Set(api.SnapshotCacheHeader, string(res.Source))
	if id.BoundDevice != "" {
		w.Header().Set(api.DeviceBoundHeader, "1")
	}
	s.Screens.MarkSeen(r.Context(), id)

	fresh := res.Source == api.CacheHit || res.Source == api.CacheMiss
	if fresh && !opts.Transition {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=0, s-maxage=%d", params.DisplayConfig().SnapshotEdgeMaxAge))
	}

	if res.ETag != "" {
		w.Header().Set("ETag", res.ETag)
		if etagMatches(r.Header.Get("If-None-Match"), res.ETag) {
			requestsServed.WithLabelValues("snapshot", "304").Inc()
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	requestsServed.WithLabelValues("snapshot", "200").Inc()
	if err := httputil.WriteBody(w, r, res.Body, http.StatusOK); err != nil {
		log.WithError(err).Debug("Could not write snapshot body")
	}
}

// etagMatches runs the strong comparison against a possibly comma-separated
// If-None-Match list.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || part == etag {
			return true
		}
	}
	return false
}
