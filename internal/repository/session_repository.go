package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists login sessions for the database-backed session
// store. Rows are keyed by the hashed session id.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindActiveByHash(ctx context.Context, hash string, now time.Time) (*domain.Session, error)
	DeleteByHash(ctx context.Context, hash string) error
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	observability.RecordRepositoryOperation(ctx, "session", "create", outcome(err))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) FindActiveByHash(ctx context.Context, hash string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hash, now).
		First(&s).Error
	observability.RecordRepositoryOperation(ctx, "session", "find_active_by_hash", outcome(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

// DeleteByHash is idempotent: deleting an absent session is not an error.
func (r *GormSessionRepository) DeleteByHash(ctx context.Context, hash string) error {
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&domain.Session{}).Error
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_hash", outcome(err))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Session{})
	observability.RecordRepositoryOperation(ctx, "session", "cleanup_expired", outcome(res.Error))
	if res.Error != nil {
		return res.RowsAffected, fmt.Errorf("cleanup sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
