package display

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/binding"
	"github.com/azzam1122112-dot/school-display/display-node/cache"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var errInduced = errors.New("induced failure")

type fakeBinder struct {
	id         *binding.Identity
	err        error
	lastDevice string
	seen       int
	unbound    int
	unbindOK   bool
	unbindErr  error
}

func (f *fakeBinder) Authorize(_ context.Context, _, device string) (*binding.Identity, error) {
	f.lastDevice = device
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.id
	return &cp, nil
}

func (f *fakeBinder) MarkSeen(_ context.Context, _ *binding.Identity) {
	f.seen++
}

func (f *fakeBinder) Unbind(_ context.Context, _ string) (bool, error) {
	f.unbound++
	return f.unbindOK, f.unbindErr
}

type fakeRevisions struct {
	rev int64
	err error
}

func (f *fakeRevisions) Current(_ context.Context, _ int64) (int64, error) {
	return f.rev, f.err
}

type fakeLimiter struct {
	count int64
	err   error
}

func (f *fakeLimiter) RateCount(_ context.Context, _, _ string) (int64, error) {
	return f.count, f.err
}

type fakeSnapshots struct {
	res      *cache.Result
	err      error
	calls    int
	lastOpts cache.Options
}

func (f *fakeSnapshots) Get(_ context.Context, _ int64, opts cache.Options) (*cache.Result, error) {
	f.calls++
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeStats struct {
	report api.WSMetricsReport
}

func (f *fakeStats) Report() api.WSMetricsReport {
	return f.report
}

type serverFixture struct {
	srv       *Server
	router    *mux.Router
	binder    *fakeBinder
	revisions *fakeRevisions
	limiter   *fakeLimiter
	snapshots *fakeSnapshots
}

func setupServer(t *testing.T) *serverFixture {
	params.SetupTestConfigCleanup(t)
	params.OverrideDisplayConfig(params.MinimalConfig())

	f := &serverFixture{
		binder:    &fakeBinder{id: &binding.Identity{ScreenID: 11, SchoolID: 7, BoundDevice: "dev-1"}},
		revisions: &fakeRevisions{rev: 5},
		limiter:   &fakeLimiter{count: 1},
		snapshots: &fakeSnapshots{},
	}
	f.srv = &Server{
		Revisions: f.revisions,
		Snapshots: f.snapshots,
		Screens:   f.binder,
		Limits:    f.limiter,
	}
	f.router = mux.NewRouter()
	f.srv.RegisterRoutes(f.router)
	return f
}

func (f *serverFixture) do(t *testing.T, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return &body
}

func requireClockHeader(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.NotEqual(t, "", w.Header().Get(api.ServerTimeHeader), "all display responses carry the server clock")
}
