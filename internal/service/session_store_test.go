package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/repository"
)

func testIdentity() domain.Identity {
	return domain.Identity{ID: uuid.New(), Email: "ada@example.com", Name: "Ada"}
}

func TestInMemorySessionStorePassiveExpiry(t *testing.T) {
	store := NewInMemorySessionStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	rec := SessionRecord{Identity: testIdentity(), ExpiresAt: now.Add(time.Hour)}
	if err := store.Save(ctx, "k", rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Identity != rec.Identity {
		t.Fatalf("unexpected identity %+v", got.Identity)
	}

	now = now.Add(time.Hour)
	if _, err := store.Load(ctx, "k"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be not found, got %v", err)
	}
	store.mu.RLock()
	_, stillThere := store.store["k"]
	store.mu.RUnlock()
	if stillThere {
		t.Fatal("expected expired record to be evicted on read")
	}
}

func TestInMemorySessionStoreDelete(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()
	if err := store.Save(ctx, "k", SessionRecord{Identity: testIdentity(), ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if _, err := store.Load(ctx, "k"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRedisSessionStoreRoundTripAndTTL(t *testing.T) {
	server, client := startMiniRedis(t)
	store := NewRedisSessionStore(client, "")
	ctx := context.Background()

	rec := SessionRecord{Identity: testIdentity(), ExpiresAt: time.Now().Add(time.Hour).UTC()}
	if err := store.Save(ctx, "abc", rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !server.Exists("session:abc") {
		t.Fatal("expected session key in redis")
	}
	if ttl := server.TTL("session:abc"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Identity != rec.Identity {
		t.Fatalf("unexpected identity %+v", got.Identity)
	}

	server.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be not found, got %v", err)
	}
}

func TestRedisSessionStoreDeleteAndFailure(t *testing.T) {
	server, client := startMiniRedis(t)
	store := NewRedisSessionStore(client, "sess")
	ctx := context.Background()

	if err := store.Save(ctx, "k", SessionRecord{Identity: testIdentity(), ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "k"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	server.Close()
	_, err := store.Load(ctx, "k")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected infrastructure error when redis is down, got %v", err)
	}
}

func TestDatabaseSessionStore(t *testing.T) {
	store := NewDatabaseSessionStore(repository.NewSessionRepository(newTestDB(t)))
	ctx := context.Background()
	now := time.Now().UTC()
	store.now = func() time.Time { return now }

	live := SessionRecord{Identity: testIdentity(), ExpiresAt: now.Add(time.Hour)}
	if err := store.Save(ctx, "live", live); err != nil {
		t.Fatalf("save live: %v", err)
	}
	if err := store.Save(ctx, "old", SessionRecord{Identity: testIdentity(), ExpiresAt: now.Add(-time.Second)}); err != nil {
		t.Fatalf("save old: %v", err)
	}

	got, err := store.Load(ctx, "live")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Identity != live.Identity {
		t.Fatalf("unexpected identity %+v", got.Identity)
	}
	if _, err := store.Load(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired row to be not found, got %v", err)
	}

	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	if err := store.Delete(ctx, "live"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "live"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected deleted session to be not found, got %v", err)
	}
}
