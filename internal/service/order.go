package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/event"
	"github.com/utafrali/ordercore/internal/pricing"
	"github.com/utafrali/ordercore/internal/repository"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/pagination"
)

// EventPublisher announces committed order changes.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, o *domain.Order, old domain.OrderStatus) error
	PublishOrderCancelled(ctx context.Context, o *domain.Order) error
}

// OrderService implements the business logic for order operations.
type OrderService struct {
	store   repository.Store
	events  EventPublisher
	metrics *OrderMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(store repository.Store, events EventPublisher, metrics *OrderMetrics, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderItemInput is one cart line.
type CreateOrderItemInput struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	ClientID     string
	Items        []CreateOrderItemInput
	Shipping     domain.ShippingInfo
	Notes        string
	DiscountCode string
}

// CreateOrder reserves stock for every line, prices the cart and stores the
// order, all in one transaction. Any failure leaves stock untouched.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.InvalidInput("quantity must be greater than zero").
				WithDetail("product_id", item.ProductID)
		}
	}
	if input.Shipping.Country == "" {
		input.Shipping.Country = domain.DefaultCountry
	}

	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		client, err := tx.Clients().GetByID(ctx, input.ClientID)
		if err != nil {
			return err
		}
		if !client.Active {
			return domain.ClientNotFound(input.ClientID)
		}
		if len(input.Items) == 0 {
			return domain.EmptyCart()
		}

		reserved, err := reserveAll(ctx, tx.Inventory(), input.Items)
		if err != nil {
			return err
		}

		order = s.buildOrder(input, reserved)
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		s.reject(err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.created.Inc()
	s.metrics.orderValue.Observe(order.Total.InexactFloat64())

	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		s.eventFailed(ctx, event.TopicOrderCreated, order.ID, err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("client_id", order.ClientID),
		slog.String("total", order.Total.StringFixed(2)),
		slog.Int("items", len(order.Items)),
	)

	return order, nil
}

// reserveAll takes stock for each line in ascending product id order, so
// concurrent orders lock products in the same sequence. The result is
// indexed like items.
func reserveAll(ctx context.Context, ledger repository.InventoryLedger, items []CreateOrderItemInput) ([]*domain.Product, error) {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].ProductID < items[order[b]].ProductID
	})

	reserved := make([]*domain.Product, len(items))
	for _, i := range order {
		p, err := ledger.Reserve(ctx, items[i].ProductID, items[i].Quantity)
		if err != nil {
			return nil, err
		}
		reserved[i] = p
	}
	return reserved, nil
}

func (s *OrderService) buildOrder(input CreateOrderInput, reserved []*domain.Product) *domain.Order {
	lines := make([]pricing.Line, len(input.Items))
	for i, item := range input.Items {
		lines[i] = pricing.Line{UnitPrice: reserved[i].Price, Quantity: item.Quantity}
	}
	totals := pricing.Calculate(lines)

	now := s.now()
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, len(input.Items))
	for i, item := range input.Items {
		items[i] = domain.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: reserved[i].Name,
			Quantity:    item.Quantity,
			UnitPrice:   reserved[i].Price,
			Subtotal:    totals.LineSubtotals[i],
		}
	}

	return &domain.Order{
		ID:           orderID,
		ClientID:     input.ClientID,
		OrderNumber:  domain.NewOrderNumber(now),
		Status:       domain.OrderStatusPending,
		Subtotal:     totals.Subtotal,
		ShippingCost: totals.Shipping,
		Tax:          totals.Tax,
		Discount:     totals.Discount,
		Total:        totals.Total,
		Shipping:     input.Shipping,
		Notes:        input.Notes,
		DiscountCode: input.DiscountCode,
		Items:        items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// GetOrder retrieves an order the actor may see. Orders of other clients
// are reported as missing.
func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	if !actor.CanAccess(order.ClientID) {
		return nil, domain.OrderNotFound(id)
	}
	return order, nil
}

// ListOrders returns the actor's orders newest first. Admins list every order.
func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor, page pagination.Params) ([]domain.OrderSummary, int, error) {
	filter := repository.OrderFilter{
		ClientID: actor.ClientID,
		Offset:   page.Offset(),
		Limit:    page.PerPage,
	}
	if actor.IsAdmin() {
		filter.ClientID = ""
	}

	orders, total, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatusInput holds the parameters for a status change.
type UpdateStatusInput struct {
	Status           domain.OrderStatus
	PaymentReference string
}

// UpdateOrderStatus writes a new status under a row lock. Every status may
// follow every other; the lifecycle timestamps follow Order.ApplyStatus.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor domain.Actor, id string, input UpdateStatusInput) (*domain.Order, error) {
	if !input.Status.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", input.Status))
	}

	var (
		order *domain.Order
		old   domain.OrderStatus
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(order.ClientID) {
			return domain.OrderNotFound(id)
		}

		old = order.Status
		order.ApplyStatus(input.Status, s.now())
		if input.Status == domain.OrderStatusPaid && input.PaymentReference != "" {
			order.PaymentReference = input.PaymentReference
		}
		return tx.Orders().UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.metrics.statusChanges.WithLabelValues(string(order.Status)).Inc()

	if err := s.events.PublishOrderStatusChanged(ctx, order, old); err != nil {
		s.eventFailed(ctx, event.TopicOrderStatusChanged, order.ID, err)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("old_status", string(old)),
		slog.String("new_status", string(order.Status)),
	)

	return order, nil
}

// CancelOrder puts the stock of a pending order back and deletes it.
func (s *OrderService) CancelOrder(ctx context.Context, actor domain.Actor, id string) error {
	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(order.ClientID) {
			return domain.OrderNotFound(id)
		}
		if !order.CanCancel() {
			return domain.InvalidCancellation(id, order.Status)
		}

		for _, item := range order.Items {
			if err := tx.Inventory().Release(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return tx.Orders().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	s.metrics.cancelled.Inc()

	if err := s.events.PublishOrderCancelled(ctx, order); err != nil {
		s.eventFailed(ctx, event.TopicOrderCancelled, order.ID, err)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int("items_released", len(order.Items)),
	)

	return nil
}

func (s *OrderService) reject(err error) {
	code := "INTERNAL_ERROR"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	s.metrics.rejections.WithLabelValues(code).Inc()
}

// eventFailed records a publish failure. The order change is already
// committed, so the caller still succeeds.
func (s *OrderService) eventFailed(ctx context.Context, topic, orderID string, err error) {
	s.metrics.eventFailures.WithLabelValues(topic).Inc()
	s.logger.ErrorContext(ctx, "failed to publish order event",
		slog.String("topic", topic),
		slog.String("order_id", orderID),
		slog.String("error", err.Error()),
	)
}
