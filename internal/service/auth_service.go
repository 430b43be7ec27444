package service

import (
	"context"
	"errors"

	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/observability"
	"github.com/pmstore/pmstore-api/internal/repository"
	"github.com/pmstore/pmstore-api/internal/security"
)

const (
	msgEmailTaken         = "Email already exists"
	msgInvalidCredentials = "Invalid credentials"
)

type AuthService struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
}

func NewAuthService(users repository.UserRepository, hasher security.PasswordHasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// Register creates a user. The pre-insert lookup only gives a fast answer;
// the unique index is what actually decides concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.normalize()
	if err := validateCredentials(&in); err != nil {
		observability.RecordAuthEvent(ctx, "register", "invalid")
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		observability.RecordAuthEvent(ctx, "register", "conflict")
		return nil, apperr.Conflict(msgEmailTaken)
	case !errors.Is(err, repository.ErrUserNotFound):
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, apperr.Internal("lookup user", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, apperr.Internal("hash password", err)
	}

	user := &domain.User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			observability.RecordAuthEvent(ctx, "register", "conflict")
			return nil, apperr.Conflict(msgEmailTaken)
		}
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, apperr.Internal("create user", err)
	}
	observability.RecordAuthEvent(ctx, "register", "success")
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password produce
// the same error, and both pay for one bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, in LoginInput) (*domain.User, error) {
	in.normalize()
	if err := validateCredentials(&in); err != nil {
		observability.RecordAuthEvent(ctx, "login", "invalid")
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(in.Password, "")
			observability.RecordAuthEvent(ctx, "login", "rejected")
			return nil, apperr.Unauthorized(msgInvalidCredentials)
		}
		observability.RecordAuthEvent(ctx, "login", "error")
		return nil, apperr.Internal("lookup user", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		observability.RecordAuthEvent(ctx, "login", "rejected")
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	observability.RecordAuthEvent(ctx, "login", "success")
	return user, nil
}
