package display

import (
	"net/http"
	"strings"
	"testing"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/gorilla/mux"
)

func setupAdmin(t *testing.T, adminToken string) *serverFixture {
	f := setupServer(t)
	f.srv.AdminToken = adminToken
	// Route registration depends on the admin token, so rebuild the router.
	f.router = mux.NewRouter()
	f.srv.RegisterRoutes(f.router)
	return f
}

func TestUnbind_RouteAbsentWithoutAdminToken(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodPost, "/api/display/unbind/tok-1/", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, f.binder.unbound)
}

func TestUnbind_RejectsWrongToken(t *testing.T) {
	f := setupAdmin(t, "op-secret")

	w := f.do(t, http.MethodPost, "/api/display/unbind/tok-1/", map[string]string{api.AdminTokenHeader: "guess"})

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, f.binder.unbound)
}

func TestUnbind_ClearsClaim(t *testing.T) {
	f := setupAdmin(t, "op-secret")
	f.binder.unbindOK = true

	w := f.do(t, http.MethodPost, "/api/display/unbind/tok-1/", map[string]string{api.AdminTokenHeader: "op-secret"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), `"unbound":true`))
	assert.Equal(t, 1, f.binder.unbound)
}

func TestUnbind_UnknownScreen(t *testing.T) {
	f := setupAdmin(t, "op-secret")
	f.binder.unbindOK = false

	w := f.do(t, http.MethodPost, "/api/display/unbind/tok-1/", map[string]string{api.AdminTokenHeader: "op-secret"})

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeScreenUnknown, decodeError(t, w).Code)
}

func TestUnbind_GetIsRejected(t *testing.T) {
	f := setupAdmin(t, "op-secret")

	w := f.do(t, http.MethodGet, "/api/display/unbind/tok-1/", map[string]string{api.AdminTokenHeader: "op-secret"})

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
