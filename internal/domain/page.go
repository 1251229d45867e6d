package domain

// Page is one page of a paginated list. Backend responses that arrive as a bare
// array are normalized into a single page.
type Page[T any] struct {
	Items           []T  `json:"items"`
	PageNumber      int  `json:"pageNumber"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

// PageQuery holds pagination and search parameters for list calls
type PageQuery struct {
	PageNumber int
	PageSize   int
	Search     string
	// Filters are passed through to the backend as query parameters
	Filters map[string]string
}

// DefaultPageQuery returns the first page at the given size
func DefaultPageQuery(size int) PageQuery {
	return PageQuery{PageNumber: 1, PageSize: size}
}

// MapPage converts the items of a page while keeping its paging metadata
func MapPage[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := &Page[U]{
		Items:           make([]U, 0, len(p.Items)),
		PageNumber:      p.PageNumber,
		PageSize:        p.PageSize,
		TotalCount:      p.TotalCount,
		TotalPages:      p.TotalPages,
		HasPreviousPage: p.HasPreviousPage,
		HasNextPage:     p.HasNextPage,
	}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
