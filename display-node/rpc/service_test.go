package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/azzam1122112-dot/school-display/display-node/rpc/display"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/sirupsen/logrus"
	logTest "github.com/sirupsen/logrus/hooks/test"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	return NewService(context.Background(), &Config{
		Host:           "127.0.0.1",
		Port:           0,
		AllowedOrigins: []string{"*"},
		Display:        &display.Server{},
	})
}

func TestLifecycle(t *testing.T) {
	hook := logTest.NewGlobal()
	svc := setupService(t)

	svc.Start()
	require.LogsContain(t, hook, "Starting display API")
	require.NoError(t, svc.Stop())
	assert.NoError(t, svc.Status())
}

func TestUnknownRouteGetsJSONEnvelope(t *testing.T) {
	svc := setupService(t)

	w := httptest.NewRecorder()
	svc.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, true, strings.Contains(w.Body.String(), `"code":404`))
}

func TestCORSPreflight(t *testing.T) {
	svc := setupService(t)

	r := httptest.NewRequest(http.MethodOptions, "/api/display/ws-metrics/", nil)
	r.Header.Set("Origin", "https://school.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	svc.server.Handler.ServeHTTP(w, r)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerMasksTokens(t *testing.T) {
	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(prev)
	hook := logTest.NewGlobal()
	svc := setupService(t)

	w := httptest.NewRecorder()
	svc.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/display/ws-metrics/", nil))

	// The route template is logged, never the raw path with the token in it.
	for _, e := range hook.AllEntries() {
		if route, ok := e.Data["route"]; ok {
			assert.Equal(t, "/api/display/ws-metrics/", route)
		}
	}
}
