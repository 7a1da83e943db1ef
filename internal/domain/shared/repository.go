package shared

// DefaultPageSize applies when a list request does not ask for one
const DefaultPageSize = 20

// Filter carries paging, ordering and free-text search for list queries.
// OrderBy is checked against a per-table whitelist by the repository.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// NewFilter returns a first-page filter ordered by the given column
func NewFilter(page, pageSize int, orderBy, orderDir string) Filter {
	f := Filter{Page: page, PageSize: pageSize, OrderBy: orderBy, OrderDir: orderDir}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	return f
}

// Paged reports whether the query should be limited to one page
func (f Filter) Paged() bool {
	return f.PageSize > 0
}

// Offset is the number of rows before the requested page
func (f Filter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
