package display

import (
	"crypto/subtle"
	"net/http"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/network/httputil"
	"github.com/gorilla/mux"
)

// Unbind clears a screen's device claim so a replacement device can take it.
// When an admin token is configured the request must present it; without one
// the route only exists under debug endpoints.
func (s *Server) Unbind(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if s.AdminToken != "" {
		presented := []byte(r.Header.Get(api.AdminTokenHeader))
		if subtle.ConstantTimeCompare(presented, []byte(s.AdminToken)) != 1 {
			writeError(w, "unbind", http.StatusForbidden, api.CodeBadRequest, "admin token required")
			return
		}
	}

	token := mux.Vars(r)["token"]
	cleared, err := s.Screens.Unbind(r.Context(), token)
	if err != nil {
		log.WithError(err).Error("Could not unbind screen")
		writeError(w, "unbind", http.StatusInternalServerError, api.CodeInternalError, "unbind failed")
		return
	}
	if !cleared {
		writeError(w, "unbind", http.StatusNotFound, api.CodeScreenUnknown, "screen token unknown")
		return
	}

	log.Info("Screen unbound by operator")
	requestsServed.WithLabelValues("unbind", "200").Inc()
	httputil.WriteJson(w, map[string]bool{"unbound": true})
}
