package pagination

import (
	"net/http"
	"strconv"
)

// Params holds pagination parameters extracted from query strings, forwarded
// to the backend API on list calls.
type Params struct {
	Page    int `json:"page" validate:"gte=1"`
	PerPage int `json:"per_page" validate:"gte=1,lte=100"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 20,
	}
}

// FromRequest extracts pagination parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 100 {
			p.PerPage = v
		}
	}

	return p
}

// Query returns the query-string form of the params, appended to upstream
// list endpoints.
func (p Params) Query() string {
	return "page=" + strconv.Itoa(p.Page) + "&per_page=" + strconv.Itoa(p.PerPage)
}

// Meta mirrors the backend's pagination metadata block. It is passed through
// the action envelope untouched so the portal can render pagers without the
// gateway recomputing totals.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Links mirrors the backend's pagination link block.
type Links struct {
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}
