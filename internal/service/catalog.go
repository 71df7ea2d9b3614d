package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/pagination"
	"github.com/utafrali/ordercore/pkg/slug"
)

// maxSKULength matches the products.sku column.
const maxSKULength = 50

// CatalogService manages products.
type CatalogService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

// CreateProductInput holds the parameters for a new product.
type CreateProductInput struct {
	Name              string
	Description       string
	Price             decimal.Decimal
	AvailableQuantity int
	ImageURL          string
	SKU               string
	Active            bool
	Featured          bool
}

// CreateProduct adds a product to the catalog. A blank SKU is derived from
// the product name.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if input.SKU == "" {
		input.SKU = slug.SKU(input.Name, maxSKULength)
		if input.SKU == "" {
			return nil, apperrors.InvalidInput("sku is required when the name has no letters or digits")
		}
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:                uuid.New().String(),
		Name:              input.Name,
		Description:       input.Description,
		Price:             input.Price.Round(2),
		AvailableQuantity: input.AvailableQuantity,
		ImageURL:          input.ImageURL,
		SKU:               input.SKU,
		Active:            input.Active,
		Featured:          input.Featured,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("sku", p.SKU),
	)
	return p, nil
}

// GetProduct retrieves a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts returns a page of active products.
func (s *CatalogService) ListProducts(ctx context.Context, page pagination.Params) ([]domain.Product, int, error) {
	products, total, err := s.store.Products().List(ctx, repository.ProductFilter{
		ActiveOnly: true,
		Offset:     page.Offset(),
		Limit:      page.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// UpdateProductInput holds optional product changes.
type UpdateProductInput struct {
	Name              *string
	Description       *string
	Price             *decimal.Decimal
	AvailableQuantity *int
	ImageURL          *string
	SKU               *string
	Active            *bool
	Featured          *bool
}

// UpdateProduct applies the non-nil fields of input under a row lock, so a
// concurrent reservation is never overwritten. A new price affects future
// orders only.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	var p *domain.Product
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		input.apply(p)
		p.UpdatedAt = time.Now().UTC()
		return tx.Products().Update(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

func (in UpdateProductInput) apply(p *domain.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.AvailableQuantity != nil {
		p.AvailableQuantity = *in.AvailableQuantity
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.SKU != nil {
		p.SKU = *in.SKU
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
}

// DeactivateProduct hides a product from the catalog. Past orders keep
// referring to it.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id string) error {
	if err := s.store.Products().Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deactivated", slog.String("product_id", id))
	return nil
}
