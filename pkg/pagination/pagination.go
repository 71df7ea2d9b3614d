package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params are the page/per_page query parameters of a list request.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset is the number of rows to skip.
func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// FromRequest reads page and per_page, falling back to defaults for missing
// or out-of-range values.
func FromRequest(r *http.Request) Params {
	p := Params{Page: 1, PerPage: DefaultPerPage}
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}
	return p
}

// Result is one page of a list.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

func NewResult[T any](data []T, totalCount int, p Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := (totalCount + p.PerPage - 1) / p.PerPage
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}
