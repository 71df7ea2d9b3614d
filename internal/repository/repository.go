package repository

import (
	"context"

	"github.com/utafrali/ordercore/internal/domain"
)

// ClientFilter defines filter criteria for listing clients.
type ClientFilter struct {
	ActiveOnly bool
	Offset     int
	Limit      int
}

// ClientRepository persists client accounts.
type ClientRepository interface {
	// Create inserts a client. A duplicate email yields an ALREADY_EXISTS error.
	Create(ctx context.Context, c *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	GetByEmail(ctx context.Context, email string) (*domain.Client, error)
	// Update writes the profile fields and the password hash.
	Update(ctx context.Context, c *domain.Client) error
	// List returns clients ordered by email with the total count.
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, int, error)
	// Deactivate marks the client inactive. Rows are never removed since
	// orders reference them.
	Deactivate(ctx context.Context, id string) error
}

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	ActiveOnly bool
	Offset     int
	Limit      int
}

// ProductRepository persists catalog entries.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetForUpdate is GetByID holding a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	Update(ctx context.Context, p *domain.Product) error
	// Deactivate marks the product inactive. Rows are never removed.
	Deactivate(ctx context.Context, id string) error
}

// InventoryLedger moves stock in and out of products. It must only be used
// through a Tx so that every movement commits or rolls back with the order
// that caused it.
type InventoryLedger interface {
	// Reserve takes quantity units of a product and returns the product as
	// it was read by the same statement. Nothing changes when the product
	// is missing, inactive or short of stock.
	Reserve(ctx context.Context, productID string, quantity int) (*domain.Product, error)

	// Release puts quantity units back, whatever the product's state.
	Release(ctx context.Context, productID string, quantity int) error
}

// OrderFilter defines filter criteria for listing orders. An empty ClientID
// lists orders of every client.
type OrderFilter struct {
	ClientID string
	Offset   int
	Limit    int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts the order header and its items.
	Create(ctx context.Context, o *domain.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetForUpdate is GetByID holding a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// List returns order summaries newest first with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.OrderSummary, int, error)

	// UpdateStatus writes status, payment flags and lifecycle timestamps.
	UpdateStatus(ctx context.Context, o *domain.Order) error

	// Delete removes an order and its items.
	Delete(ctx context.Context, id string) error
}

// Tx groups the repositories bound to one unit of work.
type Tx interface {
	Clients() ClientRepository
	Products() ProductRepository
	Inventory() InventoryLedger
	Orders() OrderRepository
}

// Store is the entry point to persistence. Its own repositories run each
// call on its own; WithTx runs fn inside a single transaction that commits
// when fn returns nil. Transient write conflicts surface as a retryable
// STORAGE_CONFLICT error.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
