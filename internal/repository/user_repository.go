package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already exists")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.User], error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

// NormalizeEmail is the single place that decides email identity: trimmed
// and lower-cased, which makes uniqueness case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", outcome(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	observability.RecordRepositoryOperation(ctx, "user", "find_by_email", outcome(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// Create inserts user, assigning id and creation time. A duplicate email is
// reported as ErrEmailTaken regardless of which driver raised it.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = NormalizeEmail(user.Email)
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			observability.RecordRepositoryOperation(ctx, "user", "create", "conflict")
			return ErrEmailTaken
		}
		observability.RecordRepositoryOperation(ctx, "user", "create", "error")
		return fmt.Errorf("create user: %w", err)
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", "success")
	return nil
}

func (r *GormUserRepository) ListPaged(ctx context.Context, query PageRequest) (PageResult[domain.User], error) {
	return listPaged[domain.User](ctx, r.db, "user", query)
}
