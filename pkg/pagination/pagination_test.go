package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		page   int
		limit  int
		offset int
	}{
		{"defaults", "", 1, 20, 0},
		{"custom", "?page=3&limit=50", 3, 50, 100},
		{"per_page alias", "?page=2&per_page=10", 2, 10, 10},
		{"limit wins over alias", "?limit=5&per_page=10", 1, 5, 0},
		{"limit clamped", "?limit=500", 1, 100, 0},
		{"negative page", "?page=-1", 1, 20, 0},
		{"zero limit", "?limit=0", 1, 20, 0},
		{"garbage", "?page=abc&limit=xyz", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/clients"+tt.query, nil)
			p := FromRequest(req)

			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestNewResult_Pages(t *testing.T) {
	r := NewResult([]int{1, 2}, 45, Params{Page: 1, Limit: 20})
	assert.Equal(t, 3, r.Pagination.Pages)
	assert.Equal(t, 45, r.Pagination.Total)

	exact := NewResult([]int{}, 40, Params{Page: 2, Limit: 20})
	assert.Equal(t, 2, exact.Pagination.Pages)

	empty := NewResult[int](nil, 0, DefaultParams())
	assert.Equal(t, 0, empty.Pagination.Pages)
	assert.NotNil(t, empty.Items)
}

func TestNewResult_JSONShape(t *testing.T) {
	r := NewResult[string](nil, 0, DefaultParams())
	b, err := json.Marshal(r)
	require.NoError(t, err)

	assert.JSONEq(t, `{"items":[],"pagination":{"page":1,"limit":20,"total":0,"pages":0}}`, string(b))
}
