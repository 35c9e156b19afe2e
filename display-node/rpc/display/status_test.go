package display

import (
	"net/http"
	"strings"
	"testing"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/display-node/binding"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

func TestStatus_FetchRequired(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?v=3&dk=dev-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"schedule_revision":5,"fetch_required":true}`, strings.TrimSpace(w.Body.String()))
	assert.Equal(t, "5", w.Header().Get(api.ScheduleRevisionHeader))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	requireClockHeader(t, w)
}

func TestStatus_NotModified(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?v=5&dk=dev-1", nil)

	require.Equal(t, http.StatusNotModified, w.Code)
	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, "5", w.Header().Get(api.ScheduleRevisionHeader))
	requireClockHeader(t, w)
}

func TestStatus_MissingVersionForcesFetch(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?dk=dev-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), `"fetch_required":true`))
}

func TestStatus_BindingRejections(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"unknown token", binding.ErrScreenUnknown, api.CodeScreenUnknown},
		{"bound elsewhere", binding.ErrScreenBound, api.CodeScreenBound},
		{"no device key", binding.ErrDeviceRequired, api.CodeDeviceRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupServer(t)
			f.binder.err = tc.err

			w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?dk=dev-1", nil)

			require.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			requireClockHeader(t, w)
		})
	}
}

func TestStatus_RateLimited(t *testing.T) {
	f := setupServer(t)
	f.limiter.count = 3 // limit is 2 per window

	w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?dk=dev-1", nil)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
	requireClockHeader(t, w)
}

func TestStatus_BrokenRateWindowLetsRequestThrough(t *testing.T) {
	f := setupServer(t)
	f.limiter.err = errInduced

	w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?dk=dev-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestStatus_RevisionFailure(t *testing.T) {
	f := setupServer(t)
	f.revisions.err = errInduced

	w := f.do(t, http.MethodGet, "/api/display/status/tok-1/?dk=dev-1", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, api.CodeInternalError, decodeError(t, w).Code)
}

func TestStatus_NeverTouchesLastSeen(t *testing.T) {
	f := setupServer(t)

	for i := 0; i < 3; i++ {
		f.do(t, http.MethodGet, "/api/display/status/tok-1/?dk=dev-1", nil)
	}

	assert.Equal(t, 0, f.binder.seen, "status polls must stay off the database")
}
