package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/repository"
)

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("load user", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, req repository.PageRequest) (repository.PageResult[domain.UserView], error) {
	page, err := s.users.ListPaged(ctx, req)
	if err != nil {
		return repository.PageResult[domain.UserView]{}, apperr.Internal("list users", err)
	}
	views := make([]domain.UserView, 0, len(page.Items))
	for i := range page.Items {
		views = append(views, page.Items[i].View())
	}
	return repository.PageResult[domain.UserView]{
		Items:      views,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}, nil
}
