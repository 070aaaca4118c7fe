package types

// Pagination - блок пагинации в ответах списков. Page считается с 1.
type Pagination struct {
	TotalCount uint64 `json:"total_count"`
	Page       uint64 `json:"page"`
	Pages      uint64 `json:"pages"`
	Limit      uint64 `json:"limit"`
}

func NewPagination(total, limit, offset uint64) Pagination {
	if limit == 0 {
		return Pagination{TotalCount: total, Page: 1, Pages: 1}
	}
	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	return Pagination{TotalCount: total, Page: offset/limit + 1, Pages: pages, Limit: limit}
}
