package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pmstore/pmstore-api/internal/observability"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// listPaged pages through the table of T oldest first. Items is never nil
// so an empty page encodes as [].
func listPaged[T any](ctx context.Context, db *gorm.DB, repo string, query PageRequest) (PageResult[T], error) {
	req := normalizePageRequest(query)
	result := PageResult[T]{Items: []T{}, Page: req.Page, PageSize: req.PageSize}

	base := db.WithContext(ctx).Model(new(T))
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, repo, "list_paged", "error")
		return PageResult[T]{}, fmt.Errorf("count %s rows: %w", repo, err)
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	if int64(req.Page-1)*int64(req.PageSize) < result.Total {
		offset := (req.Page - 1) * req.PageSize
		if err := base.Order("created_at ASC").Order("id ASC").Offset(offset).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
			observability.RecordRepositoryOperation(ctx, repo, "list_paged", "error")
			return PageResult[T]{}, fmt.Errorf("list %s rows: %w", repo, err)
		}
	}
	observability.RecordRepositoryOperation(ctx, repo, "list_paged", "success")
	return result, nil
}

func normalizePageRequest(req PageRequest) PageRequest {
	if req.Page < 1 {
		req.Page = DefaultPage
	}
	switch {
	case req.PageSize < 1:
		req.PageSize = DefaultPageSize
	case req.PageSize > MaxPageSize:
		req.PageSize = MaxPageSize
	}
	return req
}

func calcTotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}
