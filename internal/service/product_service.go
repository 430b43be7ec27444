package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/repository"
)

const msgProductNotFound = "Product not found"

type ProductService struct {
	products repository.ProductRepository
	misses   ProductMissCache
}

func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products, misses: noopProductMissCache{}}
}

// WithMissCache short-circuits repeated update/delete calls for ids that
// were already found missing.
func (s *ProductService) WithMissCache(c ProductMissCache) *ProductService {
	if c != nil {
		s.misses = c
	}
	return s
}

func (s *ProductService) List(ctx context.Context, req repository.PageRequest) (repository.PageResult[domain.Product], error) {
	page, err := s.products.ListPaged(ctx, req)
	if err != nil {
		return repository.PageResult[domain.Product]{}, apperr.Internal("list products", err)
	}
	return page, nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	in.normalize()
	if err := validateProduct(&in); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, in, uuid.Nil); err != nil {
		return nil, err
	}
	p := &domain.Product{Name: in.Name, Type: in.Type}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperr.Internal("create product", err)
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if s.knownMissing(ctx, id) {
		return nil, apperr.NotFound(msgProductNotFound)
	}
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupErr(ctx, id, err)
	}
	in.normalize()
	if err := validateProduct(&in); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, in, id); err != nil {
		return nil, err
	}
	p.Name, p.Type = in.Name, in.Type
	if err := s.products.Update(ctx, p); err != nil {
		return nil, s.mapLookupErr(ctx, id, err)
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.knownMissing(ctx, id) {
		return apperr.NotFound(msgProductNotFound)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return s.mapLookupErr(ctx, id, err)
	}
	// Deleted ids are never reissued.
	s.rememberMissing(ctx, id)
	return nil
}

// ensureUnique rejects a (name, type) pair already held by a product other
// than self.
func (s *ProductService) ensureUnique(ctx context.Context, in ProductInput, self uuid.UUID) error {
	existing, err := s.products.FindByNameAndType(ctx, in.Name, in.Type)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return nil
	case err != nil:
		return apperr.Internal("lookup product", err)
	case existing.ID == self:
		return nil
	default:
		return apperr.Conflict("Product already exists")
	}
}

func (s *ProductService) mapLookupErr(ctx context.Context, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		s.rememberMissing(ctx, id)
		return apperr.NotFound(msgProductNotFound)
	}
	return apperr.Internal("product store", err)
}

// Cache failures fall through to the repository.
func (s *ProductService) knownMissing(ctx context.Context, id uuid.UUID) bool {
	known, err := s.misses.Known(ctx, id.String())
	if err != nil {
		slog.WarnContext(ctx, "product miss cache lookup failed", "error", err.Error())
		return false
	}
	return known
}

func (s *ProductService) rememberMissing(ctx context.Context, id uuid.UUID) {
	if err := s.misses.Remember(ctx, id.String()); err != nil {
		slog.WarnContext(ctx, "product miss cache write failed", "error", err.Error())
	}
}
