// Package display implements the handlers behind /api/display/: the status
// poll, the snapshot fetch, the public ws-metrics dump and the admin unbind.
// Handlers hold narrow interfaces so tests can stand each one up without a
// database or Redis behind it.
package display

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/binding"
	"github.com/azzam1122112-dot/school-display/display-node/cache"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "rpc/display")

// retryAfterSeconds is the pause suggested to rate limited clients and to
// clients that hit a snapshot mid-build. Agents stretch it further on their
// side.
const retryAfterSeconds = 3

var requestsServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "display_api_requests_total",
	Help: "Display API responses by handler and status code.",
}, []string{"handler", "code"})

// RevisionReader reads the current schedule revision of one school.
type RevisionReader interface {
	Current(ctx context.Context, school int64) (int64, error)
}

// SnapshotProvider serves the snapshot body for a school's current revision.
type SnapshotProvider interface {
	Get(ctx context.Context, school int64, opts cache.Options) (*cache.Result, error)
}

// Binder admits a (token, device) pair and manages the underlying claim.
type Binder interface {
	Authorize(ctx context.Context, token, device string) (*binding.Identity, error)
	MarkSeen(ctx context.Context, id *binding.Identity)
	Unbind(ctx context.Context, token string) (bool, error)
}

// Limiter counts a request against the fixed (token, device) window.
type Limiter interface {
	RateCount(ctx context.Context, token, device string) (int64, error)
}

// StatsReporter renders the public ws-metrics document.
type StatsReporter interface {
	Report() api.WSMetricsReport
}

// Server bundles the display API handler dependencies. WSStats may be nil
// when the push plane is disabled; ws-metrics then answers 503. AdminToken
// guards the unbind route and disables it when empty.
type Server struct {
	Revisions  RevisionReader
	Snapshots  SnapshotProvider
	Screens    Binder
	Limits     Limiter
	WSStats    StatsReporter
	AdminToken string
}

// RegisterRoutes attaches the display API to the router. The unbind route
// only exists when an admin token is configured or debug endpoints are on.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/display/status/{token}/", s.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/display/snapshot/{token}/", s.Snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/display/ws-metrics/", s.WSMetrics).Methods(http.MethodGet)
	if s.AdminToken != "" || features.Get().DebugEndpoints {
		r.HandleFunc("/api/display/unbind/{token}/", s.Unbind).Methods(http.MethodPost)
	}
}

// deviceKey extracts the device key. The dk query parameter wins over the
// X-Display-Device header when both are present.
func deviceKey(r *http.Request) string {
	if dk := r.URL.Query().Get("dk"); dk != "" {
		return dk
	}
	return r.Header.Get(api.DeviceHeader)
}

// stampClock sets the server time header every display response carries so
// devices can correct clock drift without parsing a body.
func stampClock(w http.ResponseWriter) {
	w.Header().Set(api.ServerTimeHeader, strconv.FormatInt(time.Now().UnixMilli(), 10))
}

func writeError(w http.ResponseWriter, handler string, status int, code, message string) {
	requestsServed.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&api.ErrorResponse{Code: code, Message: message}); err != nil {
		log.WithError(err).Error("Could not write error response")
	}
}

// admit runs the shared gate in front of status and snapshot: token
// resolution, device binding, then the fixed rate window. On failure the
// response is already written and nil is returned.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, handler string) *binding.Identity {
	token := mux.Vars(r)["token"]
	device := deviceKey(r)

	id, err := s.Screens.Authorize(r.Context(), token, device)
	if err != nil {
		s.reject(w, handler, err)
		return nil
	}

	n, err := s.Limits.RateCount(r.Context(), token, device)
	if err != nil {
		// A broken rate window must not take polling down with it.
		log.WithError(err).Warn("Rate window unavailable, letting request through")
		return id
	}
	if n > int64(params.DisplayConfig().StatusRateLimit) {
		requestsServed.WithLabelValues(handler, "429").Inc()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		w.WriteHeader(http.StatusTooManyRequests)
		return nil
	}
	return id
}

func (s *Server) reject(w http.ResponseWriter, handler string, err error) {
	switch {
	case errors.Is(err, binding.ErrScreenUnknown):
		writeError(w, handler, http.StatusForbidden, api.CodeScreenUnknown, "screen token unknown or inactive")
	case errors.Is(err, binding.ErrScreenBound):
		writeError(w, handler, http.StatusForbidden, api.CodeScreenBound, "screen is active on another device")
	case errors.Is(err, binding.ErrDeviceRequired):
		writeError(w, handler, http.StatusForbidden, api.CodeDeviceRequired, "device key required")
	default:
		log.WithError(err).Error("Could not authorize display request")
		writeError(w, handler, http.StatusInternalServerError, api.CodeInternalError, "authorization unavailable")
	}
}
