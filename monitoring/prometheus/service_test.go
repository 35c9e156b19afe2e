package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/azzam1122112-dot/school-display/runtime"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/pkg/errors"
	logTest "github.com/sirupsen/logrus/hooks/test"
)

type healthyService struct{}

func (*healthyService) Start()        {}
func (*healthyService) Stop() error   { return nil }
func (*healthyService) Status() error { return nil }

type brokenService struct{}

func (*brokenService) Start()        {}
func (*brokenService) Stop() error   { return nil }
func (*brokenService) Status() error { return errors.New("socket closed") }

func TestLifecycle(t *testing.T) {
	hook := logTest.NewGlobal()
	svc := NewService("127.0.0.1:0", runtime.NewServiceRegistry())

	svc.Start()
	require.LogsContain(t, hook, "Starting service")

	require.NoError(t, svc.Stop())
	require.LogsContain(t, hook, "Stopping service")
}

func TestHealthz(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&healthyService{}))
	svc := NewService("127.0.0.1:0", registry)

	rr := httptest.NewRecorder()
	svc.healthzHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, strings.Contains(rr.Body.String(), "OK"))
}

func TestHealthz_FailingService(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&healthyService{}))
	require.NoError(t, registry.RegisterService(&brokenService{}))
	svc := NewService("127.0.0.1:0", registry)

	rr := httptest.NewRecorder()
	svc.healthzHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, true, strings.Contains(rr.Body.String(), "ERROR socket closed"))
}
