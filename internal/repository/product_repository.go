package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/observability"

	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByNameAndType(ctx context.Context, name, kind string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.Product], error)
}

type GormProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &GormProductRepository{db: db} }

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	observability.RecordRepositoryOperation(ctx, "product", "find_by_id", outcome(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func (r *GormProductRepository) FindByNameAndType(ctx context.Context, name, kind string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Where("name = ? AND type = ?", name, kind).First(&p).Error
	observability.RecordRepositoryOperation(ctx, "product", "find_by_name_and_type", outcome(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product by name and type: %w", err)
	}
	return &p, nil
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Create(p).Error
	observability.RecordRepositoryOperation(ctx, "product", "create", outcome(err))
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *GormProductRepository) Update(ctx context.Context, p *domain.Product) error {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{"name": p.Name, "type": p.Type})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "product", "update", "error")
		return fmt.Errorf("update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "product", "update", "not_found")
		return ErrProductNotFound
	}
	observability.RecordRepositoryOperation(ctx, "product", "update", "success")
	return nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "product", "delete", "error")
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "product", "delete", "not_found")
		return ErrProductNotFound
	}
	observability.RecordRepositoryOperation(ctx, "product", "delete", "success")
	return nil
}

func (r *GormProductRepository) ListPaged(ctx context.Context, query PageRequest) (PageResult[domain.Product], error) {
	return listPaged[domain.Product](ctx, r.db, "product", query)
}
