package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

const productColumns = `id, name, description, price, available_quantity, image_url, sku,
	active, featured, created_at, updated_at`

// ProductRepository implements repository.ProductRepository.
type ProductRepository struct {
	db database.Querier
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.Querier) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.AvailableQuantity, &p.ImageURL, &p.SKU,
		&p.Active, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.AvailableQuantity, p.ImageURL, p.SKU,
		p.Active, p.Featured, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "products_sku_key") {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return queryError("insert product", err)
	}
	return nil
}

// GetByID retrieves a product regardless of its active flag.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate locks the product row until the enclosing transaction ends.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepository) get(ctx context.Context, query, id string) (*domain.Product, error) {
	var p domain.Product
	err := scanProduct(r.db.QueryRow(ctx, query, id), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, queryError("get product", err)
	}
	return &p, nil
}

// List returns products ordered by name with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	where := ""
	if filter.ActiveOnly {
		where = "WHERE active"
	}
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY name, id
		LIMIT $1 OFFSET $2`, productColumns, where)

	rows, err := r.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, queryError("list products", err)
	}
	defer rows.Close()

	var total int
	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.AvailableQuantity, &p.ImageURL, &p.SKU,
			&p.Active, &p.Featured, &p.CreatedAt, &p.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

// Update writes every mutable product field.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, available_quantity = $5, image_url = $6,
			sku = $7, active = $8, featured = $9, updated_at = $10
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.AvailableQuantity, p.ImageURL,
		p.SKU, p.Active, p.Featured, p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "products_sku_key") {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return queryError("update product", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ProductNotFound(p.ID)
	}
	return nil
}

// Deactivate marks a product inactive.
func (r *ProductRepository) Deactivate(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `UPDATE products SET active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return queryError("deactivate product", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ProductNotFound(id)
	}
	return nil
}
