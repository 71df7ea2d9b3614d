package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
)

const (
	orderColumns = `id, client_id, order_number, status, subtotal, shipping_cost, tax, discount, total,
		shipping_address, shipping_city, shipping_postal_code, shipping_state, shipping_country,
		notes, discount_code, paid, payment_reference, paid_at, shipped_at, delivered_at,
		created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23)`

	insertItemSQL = `
		INSERT INTO order_items (id, order_id, product_id, position, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	selectItemsSQL = `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.subtotal
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.position`

	updateStatusSQL = `
		UPDATE orders
		SET status = $2, paid = $3, payment_reference = $4, paid_at = $5, shipped_at = $6,
			delivered_at = $7, updated_at = $8
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.Querier
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.Querier) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the header then each item. Callers run it inside a
// transaction; a repeated order number becomes a StorageConflict.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", insertOrderSQL)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertOrderSQL,
		o.ID,
		o.ClientID,
		o.OrderNumber,
		o.Status,
		o.Subtotal,
		o.ShippingCost,
		o.Tax,
		o.Discount,
		o.Total,
		o.Shipping.Address,
		o.Shipping.City,
		o.Shipping.PostalCode,
		o.Shipping.State,
		o.Shipping.Country,
		o.Notes,
		o.DiscountCode,
		o.Paid,
		o.PaymentReference,
		o.PaidAt,
		o.ShippedAt,
		o.DeliveredAt,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "orders_order_number_key"):
			return domain.StorageConflict(err)
		case database.IsForeignKeyViolation(err):
			return domain.ClientNotFound(o.ClientID)
		}
		return queryError("insert order", err)
	}

	for i, item := range o.Items {
		_, err = r.db.Exec(ctx, insertItemSQL,
			item.ID,
			o.ID,
			item.ProductID,
			i,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
		)
		if err != nil {
			return queryError("insert order item", err)
		}
	}

	return nil
}

// GetByID retrieves an order by its ID with its items in cart order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "GetOrder", selectOrderSQL, id)
}

// GetForUpdate locks the order row until the enclosing transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "GetOrderForUpdate", selectOrderSQL+" FOR UPDATE", id)
}

func (r *OrderRepository) get(ctx context.Context, op, query, id string) (_ *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var o domain.Order
	err = r.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.ClientID,
		&o.OrderNumber,
		&o.Status,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Discount,
		&o.Total,
		&o.Shipping.Address,
		&o.Shipping.City,
		&o.Shipping.PostalCode,
		&o.Shipping.State,
		&o.Shipping.Country,
		&o.Notes,
		&o.DiscountCode,
		&o.Paid,
		&o.PaymentReference,
		&o.PaidAt,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.OrderNotFound(id)
		}
		return nil, queryError("scan order", err)
	}

	o.Items, err = r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, selectItemsSQL, orderID)
	if err != nil {
		return nil, queryError("query order items", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return items, nil
}

// List returns order summaries newest first. The total count comes from the
// same query through a window function.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) (_ []domain.OrderSummary, _ int, err error) {
	var (
		where string
		args  []any
	)
	if filter.ClientID != "" {
		where = "WHERE o.client_id = $1"
		args = append(args, filter.ClientID)
	}
	query := fmt.Sprintf(`
		SELECT o.id, o.client_id, o.order_number, o.status, o.total, o.created_at,
			(SELECT count(*) FROM order_items oi WHERE oi.order_id = o.id) AS items_count,
			count(*) OVER() AS total_count
		FROM orders o
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, queryError("list orders", err)
	}
	defer rows.Close()

	var total int
	orders := make([]domain.OrderSummary, 0)
	for rows.Next() {
		var s domain.OrderSummary
		if err := rows.Scan(
			&s.ID,
			&s.ClientID,
			&s.OrderNumber,
			&s.Status,
			&s.Total,
			&s.CreatedAt,
			&s.ItemsCount,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus persists the lifecycle fields of o.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateOrderStatus", updateStatusSQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, updateStatusSQL,
		o.ID,
		o.Status,
		o.Paid,
		o.PaymentReference,
		o.PaidAt,
		o.ShippedAt,
		o.DeliveredAt,
		o.UpdatedAt,
	)
	if err != nil {
		return queryError("update order status", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.OrderNotFound(o.ID)
	}
	return nil
}

// Delete removes an order; its items go with it through ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteOrder", deleteOrderSQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return queryError("delete order", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.OrderNotFound(id)
	}
	return nil
}
