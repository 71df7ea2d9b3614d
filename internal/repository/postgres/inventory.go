package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/pkg/database"
)

const (
	reserveSQL = `
		UPDATE products
		SET available_quantity = available_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND active AND available_quantity >= $2
		RETURNING id, name, price, available_quantity`

	diagnoseSQL = `SELECT name, active, available_quantity FROM products WHERE id = $1`

	releaseSQL = `
		UPDATE products
		SET available_quantity = available_quantity + $2, updated_at = NOW()
		WHERE id = $1`
)

// InventoryLedger implements repository.InventoryLedger with conditional
// updates, so two transactions can never both take the last unit.
type InventoryLedger struct {
	db database.Querier
}

// NewInventoryLedger creates a ledger bound to db.
func NewInventoryLedger(db database.Querier) *InventoryLedger {
	return &InventoryLedger{db: db}
}

// Reserve decrements stock in one guarded statement. When the guard rejects
// the row, a follow-up read in the same transaction tells why.
func (l *InventoryLedger) Reserve(ctx context.Context, productID string, quantity int) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ReserveStock", reserveSQL)
	defer func() { end(err) }()

	p = &domain.Product{Active: true}
	err = l.db.QueryRow(ctx, reserveSQL, productID, quantity).
		Scan(&p.ID, &p.Name, &p.Price, &p.AvailableQuantity)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, queryError("reserve stock", err)
	}
	return nil, l.diagnose(ctx, productID, quantity)
}

func (l *InventoryLedger) diagnose(ctx context.Context, productID string, quantity int) error {
	var (
		name      string
		active    bool
		available int
	)
	err := l.db.QueryRow(ctx, diagnoseSQL, productID).Scan(&name, &active, &available)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ProductNotFound(productID)
	case err != nil:
		return queryError("read product stock", err)
	case !active:
		return domain.ProductUnavailable(productID, name)
	default:
		return domain.InsufficientStock(productID, name, available, quantity)
	}
}

// Release returns stock to a product.
func (l *InventoryLedger) Release(ctx context.Context, productID string, quantity int) (err error) {
	ctx, end := database.TraceQuery(ctx, "ReleaseStock", releaseSQL)
	defer func() { end(err) }()

	ct, err := l.db.Exec(ctx, releaseSQL, productID, quantity)
	if err != nil {
		return queryError("release stock", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ProductNotFound(productID)
	}
	return nil
}
