package domain

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxPageLimit = 50
)

// PageQuery - параметры постраничной выборки. Page начинается с 1.
type PageQuery struct {
	Page  int
	Limit int
	Tag   string
}

// Offset - количество пропускаемых записей.
// При переполнении возвращается math.MaxInt: такая страница заведомо пустая.
func (q PageQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// PageInfo возвращается вместе со страницей.
type PageInfo struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

// NewPageInfo считает pages = ceil(total/limit).
func NewPageInfo(total int64, q PageQuery) PageInfo {
	var pages int64
	if q.Limit > 0 {
		pages = (total + int64(q.Limit) - 1) / int64(q.Limit)
	}
	return PageInfo{Total: total, Page: q.Page, Limit: q.Limit, Pages: pages}
}
