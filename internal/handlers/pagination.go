package handlers

import "github.com/acadbuddy/acadbuddy-api/internal/models"

const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// paginate returns the page window of items. Pages past the end are empty.
func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
