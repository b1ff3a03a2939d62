package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Doer executes an HTTP request. Satisfied by httpclient.Client and
// httpclient.CircuitBreakerClient; tests substitute a mock.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// StatusError is a non-2xx answer from the backend API: a business error the
// backend chose to report, carrying the best message the body offered.
// Transport failures are NOT StatusErrors.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Result is the outcome of a successful round-trip to the backend.
type Result struct {
	Status  int
	Payload any             // parsed JSON body, raw text, or nil
	Raw     json.RawMessage // raw JSON bytes when the body was JSON
}

// Client is the single chokepoint for gateway-to-backend calls. Action
// modules and the session bootstrap never build upstream requests themselves.
type Client struct {
	base   string
	doer   Doer
	logger *slog.Logger
}

// New creates a backend API client rooted at the given base URL.
func New(base string, doer Doer, logger *slog.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		doer:   doer,
		logger: logger,
	}
}

// join resolves a request path against the base URL. Absolute URLs pass
// through untouched.
func (c *Client) join(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base + "/" + strings.TrimLeft(path, "/")
}

// Do performs a JSON round-trip to the backend API.
//
// The bearer token is always attached when non-empty, overriding any token a
// caller might have smuggled into the body. The response body is sniffed by
// content type: JSON is parsed, anything else is kept as text. A malformed
// JSON body on a 2xx response yields a nil payload, not an error; only a
// non-2xx status produces one. Every returned error carries a
// "request failed: " prefix so call sites can match on a single shape.
func (c *Client) Do(ctx context.Context, method, path string, body any, token string) (*Result, error) {
	url := c.join(path)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("request failed: encode body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.DebugContext(ctx, "upstream request",
		slog.String("method", method),
		slog.String("url", url),
	)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("request failed: read body: %w", err)
	}

	res := &Result{Status: resp.StatusCode}

	if isJSON(resp.Header.Get("Content-Type")) {
		var payload any
		if err := json.Unmarshal(raw, &payload); err == nil {
			res.Payload = payload
			res.Raw = raw
		}
		// A malformed body is indistinguishable from an empty one here:
		// payload stays nil and the status decides the outcome.
	} else if len(raw) > 0 {
		res.Payload = string(raw)
	}

	c.logger.DebugContext(ctx, "upstream response",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("request failed: %w", &StatusError{
			Status:  resp.StatusCode,
			Message: errorMessage(res.Payload, resp),
		})
	}

	return res, nil
}

// DoInto performs Do and additionally decodes a JSON response body into dst.
// dst is left untouched when the body was not JSON.
func (c *Client) DoInto(ctx context.Context, method, path string, body any, token string, dst any) (*Result, error) {
	res, err := c.Do(ctx, method, path, body, token)
	if err != nil {
		return res, err
	}
	if dst != nil && len(res.Raw) > 0 {
		if err := json.Unmarshal(res.Raw, dst); err != nil {
			return res, fmt.Errorf("request failed: decode response: %w", err)
		}
	}
	return res, nil
}

// errorMessage picks the most specific message a non-2xx body offers:
// a "message" field, then an "error" field, then the HTTP status text.
func errorMessage(payload any, resp *http.Response) string {
	if obj, ok := payload.(map[string]any); ok {
		if msg, ok := obj["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := obj["error"].(string); ok && msg != "" {
			return msg
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "upstream request failed"
}

// isJSON reports whether a content type denotes a JSON body.
func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}
