package domain

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination describes the page of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// DefaultPagination is the state before the first list request.
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, Limit: DefaultLimit}
}

// NewPagination normalises page and limit and derives TotalPages from total.
func NewPagination(page, limit int, total int64) Pagination {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}
	p := Pagination{Page: page, Limit: limit, Total: total}
	p.TotalPages = TotalPages(total, limit)
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// TotalPages returns ceil(total/limit), or 0 when there is nothing to show.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// LastPage is the highest valid page number, never less than 1.
func (p Pagination) LastPage() int {
	return max(p.TotalPages, 1)
}

// Contains reports whether page lies in [1, LastPage()].
func (p Pagination) Contains(page int) bool {
	return page >= 1 && page <= p.LastPage()
}

// Decrement accounts for one removed record and recomputes TotalPages.
func (p Pagination) Decrement() Pagination {
	if p.Total > 0 {
		p.Total--
	}
	p.TotalPages = TotalPages(p.Total, p.Limit)
	return p
}
