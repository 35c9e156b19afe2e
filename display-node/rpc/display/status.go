package display

import (
	"net/http"
	"strconv"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/network/httputil"
)

// Status answers the poll loop: a bare revision check that never touches the
// SQL database once the token memo is warm. Devices send their last seen
// revision in v and get a bodyless 304 while it still matches.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	stampClock(w)

	id := s.admit(w, r, "status")
	if id == nil {
		return
	}

	rev, err := s.Revisions.Current(r.Context(), id.SchoolID)
	if err != nil {
		log.WithError(err).WithField("school", id.SchoolID).Error("Could not read current revision")
		writeError(w, "status", http.StatusInternalServerError, api.CodeInternalError, "revision registry unavailable")
		return
	}
	w.Header().Set(api.ScheduleRevisionHeader, strconv.FormatInt(rev, 10))

	if v, perr := strconv.ParseInt(r.URL.Query().Get("v"), 10, 64); perr == nil && v == rev {
		requestsServed.WithLabelValues("status", "304").Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	requestsServed.WithLabelValues("status", "200").Inc()
	httputil.WriteJson(w, &api.StatusResponse{ScheduleRevision: rev, FetchRequired: true})
}
