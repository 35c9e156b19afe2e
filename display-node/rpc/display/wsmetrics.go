package display

import (
	"net/http"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/network/httputil"
)

// WSMetrics publicly dumps the push plane counters and health verdict. No
// auth: the document carries aggregate numbers only.
func (s *Server) WSMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if s.WSStats == nil {
		writeError(w, "ws-metrics", http.StatusServiceUnavailable, api.CodeWSUnavailable, "push plane disabled")
		return
	}
	requestsServed.WithLabelValues("ws-metrics", "200").Inc()
	httputil.WriteJson(w, s.WSStats.Report())
}
