package memory

import (
	"context"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
)

type clientRepo struct{ a access }

func (r clientRepo) Create(_ context.Context, c *domain.Client) error {
	return r.a.write(func(v *view) error { return v.createClient(c) })
}

func (r clientRepo) GetByID(_ context.Context, id string) (c *domain.Client, err error) {
	err = r.a.read(func(v *view) error {
		c, err = v.clientByID(id)
		return err
	})
	return c, err
}

func (r clientRepo) GetByEmail(_ context.Context, email string) (c *domain.Client, err error) {
	err = r.a.read(func(v *view) error {
		c, err = v.clientByEmail(email)
		return err
	})
	return c, err
}

func (r clientRepo) Update(_ context.Context, c *domain.Client) error {
	return r.a.write(func(v *view) error { return v.updateClient(c) })
}

func (r clientRepo) List(_ context.Context, f repository.ClientFilter) (clients []domain.Client, total int, err error) {
	err = r.a.read(func(v *view) error {
		clients, total = v.listClients(f)
		return nil
	})
	return clients, total, err
}

func (r clientRepo) Deactivate(_ context.Context, id string) error {
	return r.a.write(func(v *view) error { return v.deactivateClient(id) })
}

type productRepo struct{ a access }

func (r productRepo) Create(_ context.Context, p *domain.Product) error {
	return r.a.write(func(v *view) error { return v.createProduct(p) })
}

func (r productRepo) GetByID(_ context.Context, id string) (p *domain.Product, err error) {
	err = r.a.read(func(v *view) error {
		p, err = v.productByID(id)
		return err
	})
	return p, err
}

func (r productRepo) GetForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r productRepo) List(_ context.Context, f repository.ProductFilter) (products []domain.Product, total int, err error) {
	err = r.a.read(func(v *view) error {
		products, total = v.listProducts(f)
		return nil
	})
	return products, total, err
}

func (r productRepo) Update(_ context.Context, p *domain.Product) error {
	return r.a.write(func(v *view) error { return v.updateProduct(p) })
}

func (r productRepo) Deactivate(_ context.Context, id string) error {
	return r.a.write(func(v *view) error { return v.deactivateProduct(id) })
}

type ledger struct{ a access }

func (l ledger) Reserve(_ context.Context, productID string, quantity int) (p *domain.Product, err error) {
	err = l.a.write(func(v *view) error {
		p, err = v.reserve(productID, quantity)
		return err
	})
	return p, err
}

func (l ledger) Release(_ context.Context, productID string, quantity int) error {
	return l.a.write(func(v *view) error { return v.release(productID, quantity) })
}

type orderRepo struct{ a access }

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	return r.a.write(func(v *view) error { return v.createOrder(o) })
}

func (r orderRepo) GetByID(_ context.Context, id string) (o *domain.Order, err error) {
	err = r.a.read(func(v *view) error {
		o, err = v.orderByID(id)
		return err
	})
	return o, err
}

// GetForUpdate needs no row lock here: transactions already run one at a time.
func (r orderRepo) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) List(_ context.Context, f repository.OrderFilter) (orders []domain.OrderSummary, total int, err error) {
	err = r.a.read(func(v *view) error {
		orders, total = v.listOrders(f)
		return nil
	})
	return orders, total, err
}

func (r orderRepo) UpdateStatus(_ context.Context, o *domain.Order) error {
	return r.a.write(func(v *view) error { return v.updateOrderStatus(o) })
}

func (r orderRepo) Delete(_ context.Context, id string) error {
	return r.a.write(func(v *view) error { return v.deleteOrder(id) })
}
