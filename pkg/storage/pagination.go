package storage

// Pagination describes where a page sits in a result set.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
	PrevPage   int  `json:"prev_page,omitempty"`
	NextPage   int  `json:"next_page,omitempty"`
}

// NewPagination computes the navigation data for page (1-based) of a result
// set with total rows split in pages of pageSize.
func NewPagination(page, pageSize, total int) Pagination {
	if page < 1 {
		page = 1
	}

	p := Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	if pageSize > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
	}

	p.HasPrev = page > 1
	p.HasNext = page < p.TotalPages
	if p.HasPrev {
		p.PrevPage = page - 1
	}
	if p.HasNext {
		p.NextPage = page + 1
	}
	return p
}
