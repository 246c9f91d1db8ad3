package repository

import (
	"strings"

	"gorm.io/gorm"
)

// ListQuery represents common list query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// paginate applies ordering and offset/limit. Sort columns are whitelisted by the caller.
func (q *ListQuery) paginate(db *gorm.DB, allowedSort map[string]string, defaultOrder string) *gorm.DB {
	if q == nil {
		return db.Order(defaultOrder)
	}
	order := defaultOrder
	if col, ok := allowedSort[q.SortBy]; ok {
		order = col
		if strings.EqualFold(q.SortDir, "desc") {
			order += " DESC"
		}
	}
	db = db.Order(order)

	if q.PerPage > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * q.PerPage).Limit(q.PerPage)
	}
	return db
}
