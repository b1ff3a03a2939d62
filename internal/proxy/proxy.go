package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/pharmalink/gateway/pkg/errors"
	"github.com/pharmalink/gateway/pkg/httputil"
)

// loginEndpoint is the only endpoint whose response the proxy inspects: a
// successful login mints the auth cookie. logoutEndpoint clears it again.
const (
	loginEndpoint  = "login"
	logoutEndpoint = "logout"
)

// Doer executes an HTTP request against the backend API.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CookieConfig describes the auth cookie the proxy mints on login.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// forwardRequest is the normalized form of an incoming browser request:
// one tagged value instead of a handler per HTTP verb.
type forwardRequest struct {
	method   string
	endpoint string
	body     []byte // nil means no body, distinct from a literal "null"
}

// Forwarder is the sole network egress from the browser to the backend API.
// It rewrites the auth cookie into a bearer header so the browser never holds
// the upstream credential directly.
type Forwarder struct {
	target string
	doer   Doer
	cookie CookieConfig
	logger *slog.Logger
}

// NewForwarder creates a Forwarder targeting the given backend base URL.
func NewForwarder(target string, doer Doer, cookie CookieConfig, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		target: strings.TrimRight(target, "/"),
		doer:   doer,
		cookie: cookie,
		logger: logger,
	}
}

// Handler serves the catch-all proxy route. Mount it at /api/proxy/* so the
// wildcard captures the upstream endpoint path.
func (f *Forwarder) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fr, ok := f.normalize(w, r)
		if !ok {
			return
		}

		resp, err := f.forward(r.Context(), fr, TokenFromCookie(r, f.cookie.Name))
		if err != nil {
			f.logger.ErrorContext(r.Context(), "proxy forward failed",
				slog.String("method", fr.method),
				slog.String("endpoint", fr.endpoint),
				slog.String("error", err.Error()),
			)
			httputil.WriteError(w, r, apperrors.UpstreamUnavailable(err), f.logger)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		f.relay(w, r, fr, resp)
	}
}

// normalize validates the incoming request and collapses it into a
// forwardRequest. Returns ok=false after writing an error response.
func (f *Forwarder) normalize(w http.ResponseWriter, r *http.Request) (forwardRequest, bool) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "unsupported method " + r.Method},
		})
		return forwardRequest{}, false
	}

	endpoint := strings.Trim(chi.URLParam(r, "*"), "/")
	if endpoint == "" {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "missing proxy endpoint"},
		})
		return forwardRequest{}, false
	}

	fr := forwardRequest{method: r.Method, endpoint: endpoint}

	if r.Method != http.MethodGet {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to read request body"},
			})
			return forwardRequest{}, false
		}
		switch {
		case len(bytes.TrimSpace(body)) == 0:
			// An absent body is forwarded as no body at all. DELETE routinely
			// arrives empty; requiring JSON there would be a self-inflicted 400.
		case json.Valid(body):
			fr.body = body
		default:
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "request body is not valid JSON"},
			})
			return forwardRequest{}, false
		}
	}

	return fr, true
}

// forward sends the normalized request upstream. The raw Cookie header is
// never forwarded; only the extracted token travels, as a bearer header.
func (f *Forwarder) forward(ctx context.Context, fr forwardRequest, token string) (*http.Response, error) {
	var body io.Reader
	if fr.body != nil {
		body = bytes.NewReader(fr.body)
	}

	req, err := http.NewRequestWithContext(ctx, fr.method, f.target+"/"+fr.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return f.doer.Do(ctx, req)
}

// relay writes the upstream response back to the browser, mirroring the
// status code. JSON bodies pass through verbatim; anything else is wrapped
// into a JSON string. Login and logout responses additionally manage the
// auth cookie.
func (f *Forwarder) relay(w http.ResponseWriter, r *http.Request, fr forwardRequest, resp *http.Response) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		httputil.WriteError(w, r, apperrors.UpstreamUnavailable(err), f.logger)
		return
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	jsonBody := strings.Contains(resp.Header.Get("Content-Type"), "application/json") && json.Valid(raw)

	if ok && fr.method == http.MethodPost {
		switch fr.endpoint {
		case loginEndpoint:
			if token := extractToken(raw); token != "" {
				SetAuthCookie(w, f.cookie, token)
				f.logger.InfoContext(r.Context(), "auth cookie issued",
					slog.String("endpoint", fr.endpoint),
				)
			}
		case logoutEndpoint:
			ClearAuthCookie(w, f.cookie)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if jsonBody {
		_, _ = w.Write(raw)
		return
	}
	// Non-JSON upstream bodies are relayed as a JSON-encoded string so the
	// portal always receives JSON.
	encoded, _ := json.Marshal(string(raw))
	_, _ = w.Write(encoded)
}

// SetAuthCookie mints the HttpOnly auth cookie. A repeated login simply
// overwrites the previous cookie; stale tokens are never retained.
func SetAuthCookie(w http.ResponseWriter, cookie CookieConfig, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    url.QueryEscape(token),
		Path:     "/",
		MaxAge:   int(cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie removes the auth cookie from the client.
func ClearAuthCookie(w http.ResponseWriter, cookie CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractToken pulls the "token" string field out of a JSON object body.
// The backend has two login shapes, a top-level token and one nested under
// "data"; both are accepted. Returns "" when neither is present.
func extractToken(raw []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if token, ok := obj["token"].(string); ok {
		return token
	}
	if data, ok := obj["data"].(map[string]any); ok {
		token, _ := data["token"].(string)
		return token
	}
	return ""
}

// TokenFromCookie reads and URL-decodes the auth token cookie. A missing or
// undecodable cookie yields "", which forwards the request unauthenticated
// and lets the backend answer 401.
func TokenFromCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return value
}
