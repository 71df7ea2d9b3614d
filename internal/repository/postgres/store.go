// Package postgres implements the repository interfaces on PostgreSQL.
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

// Pool is what the store needs from a connection pool. *pgxpool.Pool and
// pgxmock pools satisfy it.
type Pool interface {
	database.DBTX
	Ping(ctx context.Context) error
}

// Store implements repository.Store.
type Store struct {
	pool Pool
	repos
}

var _ repository.Store = (*Store)(nil)

// repos binds every repository to one Querier, either the pool or a tx.
type repos struct {
	clients   *ClientRepository
	products  *ProductRepository
	inventory *InventoryLedger
	orders    *OrderRepository
}

func newRepos(q database.Querier) repos {
	return repos{
		clients:   NewClientRepository(q),
		products:  NewProductRepository(q),
		inventory: NewInventoryLedger(q),
		orders:    NewOrderRepository(q),
	}
}

func (r repos) Clients() repository.ClientRepository   { return r.clients }
func (r repos) Products() repository.ProductRepository { return r.products }
func (r repos) Inventory() repository.InventoryLedger  { return r.inventory }
func (r repos) Orders() repository.OrderRepository     { return r.orders }

// NewStore creates a PostgreSQL-backed store.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool, repos: newRepos(pool)}
}

var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// WithTx runs fn in a READ COMMITTED transaction. Row-level locking in the
// statements, not the isolation level, keeps stock consistent.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	err := database.WithTx(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStorageConflict) {
		return err
	}
	if database.IsTransientConflict(err) {
		return domain.StorageConflict(err)
	}
	if errors.Is(err, database.ErrBeginTx) && database.IsConnectionError(err) {
		unavailable := apperrors.ServiceUnavailable("the database is unavailable, retry later")
		unavailable.Err = errors.Join(apperrors.ErrServiceUnavail, err)
		return unavailable
	}
	return err
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// queryError wraps a driver error with op, turning lock and serialization
// failures into StorageConflict.
func queryError(op string, err error) error {
	if database.IsTransientConflict(err) {
		return domain.StorageConflict(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
