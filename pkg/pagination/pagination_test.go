package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/warehouses", nil)

	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
}

func TestFromRequest_Overrides(t *testing.T) {
	req := httptest.NewRequest("GET", "/warehouses?page=3&per_page=50", nil)

	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
}

func TestFromRequest_IgnoresInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"non-numeric", "?page=abc&per_page=xyz"},
		{"zero", "?page=0&per_page=0"},
		{"negative", "?page=-1&per_page=-5"},
		{"per_page over cap", "?per_page=500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/orders"+tc.query, nil)

			p := FromRequest(req)

			assert.Equal(t, 1, p.Page)
			assert.Equal(t, 20, p.PerPage)
		})
	}
}

func TestFromRequest_PerPageCap_BoundaryAccepted(t *testing.T) {
	req := httptest.NewRequest("GET", "/orders?per_page=100", nil)

	p := FromRequest(req)

	assert.Equal(t, 100, p.PerPage)
}

func TestParams_Query(t *testing.T) {
	p := Params{Page: 2, PerPage: 10}

	assert.Equal(t, "page=2&per_page=10", p.Query())
}

func TestParams_Query_Defaults(t *testing.T) {
	assert.Equal(t, "page=1&per_page=20", DefaultParams().Query())
}
