package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/pmstore/pmstore-api/internal/domain"
)

func TestNormalizePageRequest(t *testing.T) {
	tests := map[string]struct {
		in, want PageRequest
	}{
		"zero value":        {PageRequest{}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		"negative page":     {PageRequest{Page: -3, PageSize: 5}, PageRequest{Page: 1, PageSize: 5}},
		"negative size":     {PageRequest{Page: 4, PageSize: -9}, PageRequest{Page: 4, PageSize: DefaultPageSize}},
		"oversized":         {PageRequest{Page: 1, PageSize: 1000}, PageRequest{Page: 1, PageSize: MaxPageSize}},
		"already in bounds": {PageRequest{Page: 7, PageSize: 33}, PageRequest{Page: 7, PageSize: 33}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := normalizePageRequest(tc.in); got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestListPagedProducts(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, &domain.Product{Name: fmt.Sprintf("item-%d", i), Type: "kind"}); err != nil {
			t.Fatalf("seed product %d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		req       PageRequest
		wantItems int
		wantPages int
	}{
		{name: "first page", req: PageRequest{Page: 1, PageSize: 2}, wantItems: 2, wantPages: 3},
		{name: "partial last page", req: PageRequest{Page: 3, PageSize: 2}, wantItems: 1, wantPages: 3},
		{name: "past the end", req: PageRequest{Page: 9, PageSize: 2}, wantItems: 0, wantPages: 3},
		{name: "defaults", req: PageRequest{}, wantItems: 5, wantPages: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := repo.ListPaged(ctx, tc.req)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.Items == nil {
				t.Fatal("items must not be nil")
			}
			if len(page.Items) != tc.wantItems || page.TotalPages != tc.wantPages || page.Total != 5 {
				t.Fatalf("got items=%d pages=%d total=%d", len(page.Items), page.TotalPages, page.Total)
			}
		})
	}
}

func TestListPagedEmptyTable(t *testing.T) {
	page, err := NewUserRepository(newTestDB(t)).ListPaged(context.Background(), PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.TotalPages != 0 {
		t.Fatalf("unexpected empty page: %+v", page)
	}
}

func FuzzCalcTotalPagesCoversTotal(f *testing.F) {
	for _, seed := range []struct {
		total int64
		size  int
	}{{0, 10}, {10, 0}, {1, 20}, {41, 20}, {1 << 62, 3}} {
		f.Add(seed.total, seed.size)
	}
	f.Fuzz(func(t *testing.T, total int64, size int) {
		pages := calcTotalPages(total, size)
		if total <= 0 || size <= 0 {
			if pages != 0 {
				t.Fatalf("expected 0 pages, got %d", pages)
			}
			return
		}
		if total > 1<<62 {
			t.Skip()
		}
		// Every row lands on some page and the last page is not empty.
		covered := int64(pages) * int64(size)
		if covered < total || covered-int64(size) >= total {
			t.Fatalf("pages=%d size=%d total=%d", pages, size, total)
		}
	})
}
