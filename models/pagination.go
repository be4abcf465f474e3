package models

/* offset pagination */

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// PageInput is the page/page_size pair taken from the query string.
type PageInput struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps the input and returns the LIMIT/OFFSET pair.
func (p *PageInput) Normalize() (limit int, offset int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p.PageSize, (p.Page - 1) * p.PageSize
}

// Paginated is the list envelope: total row count plus the requested page.
type Paginated[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []*T  `json:"results"`
}

func newPaginated[T any](count int64, page *PageInput, results []*T) *Paginated[T] {
	if results == nil {
		results = []*T{}
	}
	return &Paginated[T]{
		Count:    count,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	}
}
