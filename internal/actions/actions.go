// Package actions implements the server-facing operations behind the portal
// pages. Every operation follows the same shape: validate input, build the
// upstream payload, call the backend through the shared client, and map the
// outcome into a uniform envelope. Business and validation failures resolve
// inside the envelope; only transport and programmer errors escape as Go
// errors.
package actions

import (
	"context"
	"errors"
	"net/http"

	"github.com/pharmalink/gateway/internal/upstream"
	apperrors "github.com/pharmalink/gateway/pkg/errors"
	"github.com/pharmalink/gateway/pkg/pagination"
	"github.com/pharmalink/gateway/pkg/validator"
)

// Caller is the slice of the upstream client the action layer uses.
// Tests substitute a mock to assert that invalid input never reaches it.
type Caller interface {
	Do(ctx context.Context, method, path string, body any, token string) (*upstream.Result, error)
	DoInto(ctx context.Context, method, path string, body any, token string, dst any) (*upstream.Result, error)
}

// Error carries a failed action's message and optional field errors.
type Error struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Response is the uniform envelope every action returns. Callers branch on
// Success before touching Data.
type Response[T any] struct {
	Success bool              `json:"success"`
	Data    T                 `json:"data,omitempty"`
	Meta    *pagination.Meta  `json:"meta,omitempty"`
	Links   *pagination.Links `json:"links,omitempty"`
	Error   *Error            `json:"error,omitempty"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// Fail wraps a message in a failed envelope.
func Fail[T any](message string) Response[T] {
	return Response[T]{Success: false, Error: &Error{Message: message}}
}

// invalid maps a validation error into a failed envelope. Returns nil when
// the input is valid.
func invalid[T any](in any) *Response[T] {
	err := validator.Validate(in)
	if err == nil {
		return nil
	}

	resp := Fail[T](err.Error())
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		resp.Error.Fields = ve.Fields()
	}
	return &resp
}

// failFrom converts an upstream error into an envelope when it is a business
// error the backend reported. Anything else means the backend never answered
// usefully, so it propagates to the calling handler as a bad-gateway error.
func failFrom[T any](err error) (Response[T], error) {
	var se *upstream.StatusError
	if errors.As(err, &se) {
		return Fail[T](se.Message), nil
	}
	return Response[T]{}, apperrors.UpstreamUnavailable(err)
}

// listPayload mirrors the backend's list response shape.
type listPayload[T any] struct {
	Data  []T               `json:"data"`
	Meta  *pagination.Meta  `json:"meta,omitempty"`
	Links *pagination.Links `json:"links,omitempty"`
}

// list fetches a paginated collection and passes meta/links through
// untouched.
func list[T any](ctx context.Context, api Caller, path, token string, p pagination.Params) (Response[[]T], error) {
	var payload listPayload[T]
	if _, err := api.DoInto(ctx, http.MethodGet, path+"?"+p.Query(), nil, token, &payload); err != nil {
		return failFrom[[]T](err)
	}

	resp := OK(payload.Data)
	resp.Meta = payload.Meta
	resp.Links = payload.Links
	return resp, nil
}

// call performs a mutating round-trip and decodes the returned resource.
func call[T any](ctx context.Context, api Caller, method, path string, body any, token string) (Response[T], error) {
	var out T
	if _, err := api.DoInto(ctx, method, path, body, token, &out); err != nil {
		return failFrom[T](err)
	}
	return OK(out), nil
}
