// Package memory is an in-process implementation of the repository
// interfaces. Transactions hold an exclusive lock and work on a copy of the
// state that replaces the live state only when the transaction succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

type state struct {
	clients  map[string]domain.Client
	products map[string]domain.Product
	orders   map[string]domain.Order
	numbers  map[string]string
}

func newState() *state {
	return &state{
		clients:  make(map[string]domain.Client),
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		numbers:  make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.numbers {
		c.numbers[k] = v
	}
	return c
}

// Store implements repository.Store in memory.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithTx serializes transactions. fn sees its own writes; other readers see
// none of them until fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(bind(txAccess{v: &view{state: working}})); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Clients() repository.ClientRepository   { return clientRepo{s} }
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }
func (s *Store) Inventory() repository.InventoryLedger  { return ledger{s} }
func (s *Store) Orders() repository.OrderRepository     { return orderRepo{s} }

func (s *Store) read(fn func(v *view) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&view{state: s.state})
}

// write applies fn to the live state. Every view mutation checks before it
// changes anything, so a failed call leaves the state untouched.
func (s *Store) write(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{state: s.state})
}

// access runs view operations either against the live store or inside a
// transaction that already holds the lock.
type access interface {
	read(fn func(v *view) error) error
	write(fn func(v *view) error) error
}

type txAccess struct{ v *view }

func (t txAccess) read(fn func(v *view) error) error  { return fn(t.v) }
func (t txAccess) write(fn func(v *view) error) error { return fn(t.v) }

type txRepos struct{ a access }

func bind(a access) txRepos { return txRepos{a: a} }

func (t txRepos) Clients() repository.ClientRepository   { return clientRepo{t.a} }
func (t txRepos) Products() repository.ProductRepository { return productRepo{t.a} }
func (t txRepos) Inventory() repository.InventoryLedger  { return ledger{t.a} }
func (t txRepos) Orders() repository.OrderRepository     { return orderRepo{t.a} }

// view is the state seen by one operation. It does no locking.
type view struct {
	state *state
}

// --- clients ---

func (v *view) createClient(c *domain.Client) error {
	for _, existing := range v.state.clients {
		if strings.EqualFold(existing.Email, c.Email) {
			return apperrors.AlreadyExists("client", "email", c.Email)
		}
	}
	v.state.clients[c.ID] = *c
	return nil
}

func (v *view) clientByID(id string) (*domain.Client, error) {
	c, ok := v.state.clients[id]
	if !ok {
		return nil, domain.ClientNotFound(id)
	}
	return &c, nil
}

func (v *view) clientByEmail(email string) (*domain.Client, error) {
	for _, c := range v.state.clients {
		if strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("client", email)
}

func (v *view) updateClient(c *domain.Client) error {
	if _, ok := v.state.clients[c.ID]; !ok {
		return domain.ClientNotFound(c.ID)
	}
	v.state.clients[c.ID] = *c
	return nil
}

func (v *view) listClients(f repository.ClientFilter) ([]domain.Client, int) {
	all := make([]domain.Client, 0, len(v.state.clients))
	for _, c := range v.state.clients {
		if f.ActiveOnly && !c.Active {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Email != all[j].Email {
			return all[i].Email < all[j].Email
		}
		return all[i].ID < all[j].ID
	})
	return page(all, f.Offset, f.Limit), len(all)
}

func (v *view) deactivateClient(id string) error {
	c, ok := v.state.clients[id]
	if !ok {
		return domain.ClientNotFound(id)
	}
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
	v.state.clients[id] = c
	return nil
}

// --- products ---

func (v *view) createProduct(p *domain.Product) error {
	for _, existing := range v.state.products {
		if existing.SKU == p.SKU {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
	}
	v.state.products[p.ID] = *p
	return nil
}

func (v *view) productByID(id string) (*domain.Product, error) {
	p, ok := v.state.products[id]
	if !ok {
		return nil, domain.ProductNotFound(id)
	}
	return &p, nil
}

func (v *view) listProducts(f repository.ProductFilter) ([]domain.Product, int) {
	all := make([]domain.Product, 0, len(v.state.products))
	for _, p := range v.state.products {
		if f.ActiveOnly && !p.Active {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return page(all, f.Offset, f.Limit), len(all)
}

func (v *view) updateProduct(p *domain.Product) error {
	if _, ok := v.state.products[p.ID]; !ok {
		return domain.ProductNotFound(p.ID)
	}
	for id, existing := range v.state.products {
		if id != p.ID && existing.SKU == p.SKU {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
	}
	v.state.products[p.ID] = *p
	return nil
}

func (v *view) deactivateProduct(id string) error {
	p, ok := v.state.products[id]
	if !ok {
		return domain.ProductNotFound(id)
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	v.state.products[id] = p
	return nil
}

// --- inventory ---

func (v *view) reserve(productID string, quantity int) (*domain.Product, error) {
	p, ok := v.state.products[productID]
	switch {
	case !ok:
		return nil, domain.ProductNotFound(productID)
	case !p.Active:
		return nil, domain.ProductUnavailable(productID, p.Name)
	case p.AvailableQuantity < quantity:
		return nil, domain.InsufficientStock(productID, p.Name, p.AvailableQuantity, quantity)
	}
	p.AvailableQuantity -= quantity
	p.UpdatedAt = time.Now().UTC()
	v.state.products[productID] = p
	return &p, nil
}

func (v *view) release(productID string, quantity int) error {
	p, ok := v.state.products[productID]
	if !ok {
		return domain.ProductNotFound(productID)
	}
	p.AvailableQuantity += quantity
	p.UpdatedAt = time.Now().UTC()
	v.state.products[productID] = p
	return nil
}

// --- orders ---

func (v *view) createOrder(o *domain.Order) error {
	if _, ok := v.state.clients[o.ClientID]; !ok {
		return domain.ClientNotFound(o.ClientID)
	}
	if _, taken := v.state.numbers[o.OrderNumber]; taken {
		return domain.StorageConflict(apperrors.AlreadyExists("order", "order_number", o.OrderNumber))
	}
	stored := *o
	stored.Items = make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.OrderID = o.ID
		item.ProductName = ""
		stored.Items[i] = item
	}
	v.state.orders[o.ID] = stored
	v.state.numbers[o.OrderNumber] = o.ID
	return nil
}

// orderByID returns a copy with product names resolved from the catalog.
func (v *view) orderByID(id string) (*domain.Order, error) {
	stored, ok := v.state.orders[id]
	if !ok {
		return nil, domain.OrderNotFound(id)
	}
	o := stored
	o.Items = make([]domain.OrderItem, len(stored.Items))
	for i, item := range stored.Items {
		item.ProductName = v.state.products[item.ProductID].Name
		o.Items[i] = item
	}
	return &o, nil
}

func (v *view) listOrders(f repository.OrderFilter) ([]domain.OrderSummary, int) {
	all := make([]domain.OrderSummary, 0)
	for _, o := range v.state.orders {
		if f.ClientID != "" && o.ClientID != f.ClientID {
			continue
		}
		all = append(all, domain.OrderSummary{
			ID:          o.ID,
			ClientID:    o.ClientID,
			OrderNumber: o.OrderNumber,
			Status:      o.Status,
			Total:       o.Total,
			ItemsCount:  len(o.Items),
			CreatedAt:   o.CreatedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, f.Offset, f.Limit), len(all)
}

func (v *view) updateOrderStatus(o *domain.Order) error {
	stored, ok := v.state.orders[o.ID]
	if !ok {
		return domain.OrderNotFound(o.ID)
	}
	stored.Status = o.Status
	stored.Paid = o.Paid
	stored.PaymentReference = o.PaymentReference
	stored.PaidAt = o.PaidAt
	stored.ShippedAt = o.ShippedAt
	stored.DeliveredAt = o.DeliveredAt
	stored.UpdatedAt = o.UpdatedAt
	v.state.orders[o.ID] = stored
	return nil
}

func (v *view) deleteOrder(id string) error {
	o, ok := v.state.orders[id]
	if !ok {
		return domain.OrderNotFound(id)
	}
	delete(v.state.orders, id)
	delete(v.state.numbers, o.OrderNumber)
	return nil
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
