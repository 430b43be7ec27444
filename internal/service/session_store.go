package service

import (
	"context"
	"sync"
	"time"

	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/repository"
)

// ErrSessionNotFound covers unknown, expired and destroyed sessions alike.
var ErrSessionNotFound = repository.ErrSessionNotFound

type SessionRecord struct {
	Identity  domain.Identity `json:"identity"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SessionStore holds session records keyed by the hashed session id.
type SessionStore interface {
	Name() string
	Save(ctx context.Context, key string, rec SessionRecord) error
	Load(ctx context.Context, key string) (*SessionRecord, error)
	Delete(ctx context.Context, key string) error
}

type InMemorySessionStore struct {
	mu    sync.RWMutex
	store map[string]SessionRecord
	now   func() time.Time
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		store: make(map[string]SessionRecord),
		now:   time.Now,
	}
}

func (s *InMemorySessionStore) Name() string { return "memory" }

func (s *InMemorySessionStore) Save(_ context.Context, key string, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = rec
	return nil
}

func (s *InMemorySessionStore) Load(_ context.Context, key string) (*SessionRecord, error) {
	s.mu.RLock()
	rec, ok := s.store[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(rec.ExpiresAt) {
		s.mu.Lock()
		if cur, ok := s.store[key]; ok && !s.now().Before(cur.ExpiresAt) {
			delete(s.store, key)
		}
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

// DatabaseSessionStore keeps sessions as rows so they survive restarts
// without Redis.
type DatabaseSessionStore struct {
	repo repository.SessionRepository
	now  func() time.Time
}

func NewDatabaseSessionStore(repo repository.SessionRepository) *DatabaseSessionStore {
	return &DatabaseSessionStore{repo: repo, now: time.Now}
}

func (s *DatabaseSessionStore) Name() string { return "database" }

func (s *DatabaseSessionStore) Save(ctx context.Context, key string, rec SessionRecord) error {
	return s.repo.Create(ctx, &domain.Session{
		TokenHash: key,
		UserID:    rec.Identity.ID,
		Email:     rec.Identity.Email,
		Name:      rec.Identity.Name,
		ExpiresAt: rec.ExpiresAt.UTC(),
		CreatedAt: s.now().UTC(),
	})
}

func (s *DatabaseSessionStore) Load(ctx context.Context, key string) (*SessionRecord, error) {
	row, err := s.repo.FindActiveByHash(ctx, key, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &SessionRecord{Identity: row.Identity(), ExpiresAt: row.ExpiresAt}, nil
}

func (s *DatabaseSessionStore) Delete(ctx context.Context, key string) error {
	return s.repo.DeleteByHash(ctx, key)
}

// Cleanup removes expired rows. Reads already ignore them; this only
// reclaims space.
func (s *DatabaseSessionStore) Cleanup(ctx context.Context) (int64, error) {
	return s.repo.CleanupExpired(ctx, s.now().UTC())
}
