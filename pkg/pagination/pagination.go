package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns page 1 with DefaultLimit items.
func DefaultParams() Params {
	return Params{Page: 1, Limit: DefaultLimit}
}

// FromRequest reads page and limit from the query string. per_page is
// accepted as an alias of limit. Limits above MaxLimit are clamped,
// non-positive or malformed values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}

	raw := q.Get("limit")
	if raw == "" {
		raw = q.Get("per_page")
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		p.Limit = min(v, MaxLimit)
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Result wraps one page of items.
type Result[T any] struct {
	Items      []T  `json:"items"`
	Pagination Meta `json:"pagination"`
}

// NewResult builds a Result. A nil items slice is encoded as [].
func NewResult[T any](items []T, total int, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return Result[T]{
		Items: items,
		Pagination: Meta{
			Page:  params.Page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}
}
