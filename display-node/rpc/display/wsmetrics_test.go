package display

import (
	"net/http"
	"strings"
	"testing"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

func TestWSMetrics_DisabledPlane(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodGet, "/api/display/ws-metrics/", nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, api.CodeWSUnavailable, decodeError(t, w).Code)
}

func TestWSMetrics_Report(t *testing.T) {
	f := setupServer(t)
	f.srv.WSStats = &fakeStats{report: api.WSMetricsReport{
		ConnectionsActive: 4,
		ConnectionsTotal:  20,
		BroadcastsSent:    100,
		AvgLatencyMS:      2.5,
		Health:            api.HealthOK,
	}}

	w := f.do(t, http.MethodGet, "/api/display/ws-metrics/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, true, strings.Contains(body, `"connections_active":4`))
	assert.Equal(t, true, strings.Contains(body, `"avg_latency_ms":2.5`))
	assert.Equal(t, true, strings.Contains(body, `"health":"ok"`))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
