package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/gateway/pkg/httpclient"
)

func proxyTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, target string) http.Handler {
	t.Helper()
	fwd := NewForwarder(
		target,
		httpclient.New(httpclient.Config{Timeout: 5 * time.Second}),
		CookieConfig{Name: "token", TTL: 24 * time.Hour},
		proxyTestLogger(),
	)
	r := chi.NewRouter()
	r.Handle("/api/proxy", fwd.Handler())
	r.Handle("/api/proxy/*", fwd.Handler())
	return r
}

// capturedRequest records what the backend actually received.
type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func captureBackend(t *testing.T, status int, contentType, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.header = r.Header.Clone()
		captured.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

// --- Credential Rewrite Tests ---

func TestForwarder_CookieToken_BecomesBearerHeader(t *testing.T) {
	backend, captured := captureBackend(t, http.StatusOK, "application/json", `{"ok":true}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/medicines", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "abc%20xyz"})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	// The cookie value is URL-decoded before it travels upstream.
	assert.Equal(t, "Bearer abc xyz", captured.header.Get("Authorization"))
	// The raw Cookie header never crosses the boundary.
	assert.Empty(t, captured.header.Get("Cookie"))
}

func TestForwarder_NoCookie_ForwardsUnauthenticated(t *testing.T) {
	backend, captured := captureBackend(t, http.StatusUnauthorized, "application/json", `{"message":"token required"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/medicines", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	// The backend's 401 is relayed rather than synthesized locally.
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, captured.header.Get("Authorization"))
}

func TestForwarder_EndpointPath_ForwardedToTarget(t *testing.T) {
	backend, captured := captureBackend(t, http.StatusOK, "application/json", `{}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/company/warehouses/42", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, "/company/warehouses/42", captured.path)
}

// --- Response Relay Tests ---

func TestForwarder_JSONResponse_RelayedVerbatim(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusCreated, "application/json", `{"id":"w1","name":"Main"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/warehouses", strings.NewReader(`{"name":"Main"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"w1","name":"Main"}`, rr.Body.String())
}

func TestForwarder_NonJSONResponse_WrappedAsJSONString(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "text/plain", "plain text answer")
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/status", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var s string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, "plain text answer", s)
}

func TestForwarder_ErrorStatus_RelayedVerbatim(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusUnprocessableEntity, "application/json", `{"message":"name taken"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/warehouses", strings.NewReader(`{"name":"Main"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"message":"name taken"}`, rr.Body.String())
}

func TestForwarder_BackendDown_Returns502(t *testing.T) {
	router := newTestRouter(t, "http://localhost:1")

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/medicines", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "UPSTREAM_UNAVAILABLE")
}

// --- Cookie Lifecycle Tests ---

func TestForwarder_LoginSuccess_MintsAuthCookie(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{"token":"tok123","user":{"id":"u1"}}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.Equal(t, "tok123", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestForwarder_RepeatedLogin_OverwritesCookie(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{"token":"tok456"}`)
	router := newTestRouter(t, backend.URL)

	// Second login while a cookie from a previous session is still present.
	req := httptest.NewRequest(http.MethodPost, "/api/proxy/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	req.AddCookie(&http.Cookie{Name: "token", Value: "stale"})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok456", cookies[0].Value)
}

func TestForwarder_LoginNestedToken_MintsAuthCookie(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{"success":true,"data":{"token":"nested-tok"}}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "nested-tok", cookies[0].Value)
}

func TestForwarder_LoginFailure_NoCookie(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusUnauthorized, "application/json", `{"message":"bad credentials"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestForwarder_LoginResponseWithoutToken_NoCookie(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{"message":"mfa required"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestForwarder_NonLoginEndpoint_NeverMintsCookie(t *testing.T) {
	// A body that merely contains a token field must not trigger minting.
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{"token":"looks-like-one"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/orders", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestForwarder_Logout_ClearsCookie(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{"message":"bye"}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok123"})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

// --- Request Normalization Tests ---

func TestForwarder_DeleteWithoutBody_ForwardsNoBody(t *testing.T) {
	backend, captured := captureBackend(t, http.StatusOK, "application/json", `{"deleted":true}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodDelete, "/api/proxy/warehouses/42", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	// No body at all, not the JSON literal "null".
	assert.Empty(t, captured.body)
}

func TestForwarder_PostWithBody_ForwardsBodyVerbatim(t *testing.T) {
	backend, captured := captureBackend(t, http.StatusOK, "application/json", `{}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/orders", strings.NewReader(`{"items":[{"id":"m1","qty":2}]}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.JSONEq(t, `{"items":[{"id":"m1","qty":2}]}`, string(captured.body))
	assert.Equal(t, "application/json", captured.header.Get("Content-Type"))
}

func TestForwarder_InvalidJSONBody_Returns400(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/orders", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_INPUT")
}

func TestForwarder_MissingEndpoint_Returns404(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{}`)
	router := newTestRouter(t, backend.URL)

	for _, target := range []string{"/api/proxy", "/api/proxy/"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "path %s", target)
	}
}

func TestForwarder_UnsupportedMethod_Returns405(t *testing.T) {
	backend, _ := captureBackend(t, http.StatusOK, "application/json", `{}`)
	router := newTestRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPatch, "/api/proxy/orders", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
