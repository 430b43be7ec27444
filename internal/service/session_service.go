package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/observability"
	"github.com/pmstore/pmstore-api/internal/security"
)

type SessionService struct {
	store  SessionStore
	pepper string
	ttl    time.Duration
	cookie security.CookieOptions
	now    func() time.Time
}

func NewSessionService(store SessionStore, cfg *config.Config) *SessionService {
	return &SessionService{
		store:  store,
		pepper: cfg.SessionPepper,
		ttl:    cfg.SessionTTL,
		cookie: security.CookieOptions{
			Name:     cfg.SessionCookieName,
			Path:     "/",
			Secure:   cfg.CookieSecure,
			HTTPOnly: true,
		},
		now: time.Now,
	}
}

func (s *SessionService) CookieName() string { return s.cookie.Name }

// Create stores a new session for identity and sets the session cookie.
// The returned id is what the cookie carries.
func (s *SessionService) Create(ctx context.Context, w http.ResponseWriter, identity domain.Identity) (string, error) {
	if identity.IsZero() {
		return "", errors.New("create session: empty identity")
	}
	id, err := security.NewSessionID()
	if err != nil {
		observability.RecordSessionOperation(ctx, s.store.Name(), "create", "error")
		return "", fmt.Errorf("create session: %w", err)
	}
	rec := SessionRecord{Identity: identity, ExpiresAt: s.now().Add(s.ttl).UTC()}
	if err := s.store.Save(ctx, security.HashSessionID(id, s.pepper), rec); err != nil {
		observability.RecordSessionOperation(ctx, s.store.Name(), "create", "error")
		return "", fmt.Errorf("create session: %w", err)
	}
	security.SetCookie(w, s.cookie, id, s.ttl)
	observability.RecordSessionOperation(ctx, s.store.Name(), "create", "success")
	return id, nil
}

func (s *SessionService) Read(ctx context.Context, sessionID string) (*domain.Identity, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	rec, err := s.store.Load(ctx, security.HashSessionID(sessionID, s.pepper))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			observability.RecordSessionOperation(ctx, s.store.Name(), "read", "miss")
			return nil, ErrSessionNotFound
		}
		observability.RecordSessionOperation(ctx, s.store.Name(), "read", "error")
		return nil, fmt.Errorf("read session: %w", err)
	}
	observability.RecordSessionOperation(ctx, s.store.Name(), "read", "hit")
	identity := rec.Identity
	return &identity, nil
}

// Destroy removes the session if it exists and always clears the cookie.
func (s *SessionService) Destroy(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	security.ClearCookie(w, s.cookie)
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, security.HashSessionID(sessionID, s.pepper)); err != nil {
		observability.RecordSessionOperation(ctx, s.store.Name(), "destroy", "error")
		return fmt.Errorf("destroy session: %w", err)
	}
	observability.RecordSessionOperation(ctx, s.store.Name(), "destroy", "success")
	return nil
}

func (s *SessionService) SessionIDFromRequest(r *http.Request) string {
	return security.GetCookie(r, s.cookie.Name)
}
