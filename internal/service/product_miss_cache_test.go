package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/repository"
)

func TestInMemoryProductMissCacheExpiry(t *testing.T) {
	cache := NewInMemoryProductMissCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	if known, _ := cache.Known(ctx, "p1"); known {
		t.Fatal("expected initial miss")
	}
	if err := cache.Remember(ctx, "p1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if known, _ := cache.Known(ctx, "p1"); !known {
		t.Fatal("expected remembered id")
	}
	now = now.Add(time.Minute)
	if known, _ := cache.Known(ctx, "p1"); known {
		t.Fatal("expected entry to expire")
	}
}

func TestRedisProductMissCacheTTLAndFailure(t *testing.T) {
	server, client := startMiniRedis(t)
	cache := NewRedisProductMissCache(client, "miss_test", 2*time.Second)
	ctx := context.Background()

	if err := cache.Remember(ctx, "p1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	known, err := cache.Known(ctx, "p1")
	if err != nil || !known {
		t.Fatalf("expected hit, got known=%v err=%v", known, err)
	}
	server.FastForward(3 * time.Second)
	if known, _ := cache.Known(ctx, "p1"); known {
		t.Fatal("expected miss after ttl")
	}

	server.Close()
	if _, err := cache.Known(ctx, "p1"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestProductServiceRemembersMissingIDs(t *testing.T) {
	cache := NewInMemoryProductMissCache(time.Minute)
	svc := NewProductService(repository.NewProductRepository(newTestDB(t))).WithMissCache(cache)
	ctx := context.Background()

	missing := uuid.New()
	if _, err := svc.Update(ctx, missing, ProductInput{Name: "x", Type: "y"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if known, _ := cache.Known(ctx, missing.String()); !known {
		t.Fatal("expected missing id to be remembered")
	}
	if err := svc.Delete(ctx, missing); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected cached not found, got %v", err)
	}

	p, err := svc.Create(ctx, ProductInput{Name: "Lamp", Type: "light"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if known, _ := cache.Known(ctx, p.ID.String()); !known {
		t.Fatal("expected deleted id to be remembered")
	}
}
