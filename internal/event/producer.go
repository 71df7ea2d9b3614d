package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/ordercore/internal/domain"
	pkgkafka "github.com/utafrali/ordercore/pkg/kafka"
	"github.com/utafrali/ordercore/pkg/logger"
)

// Kafka topics for order domain events.
var (
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicOrderCancelled     = pkgkafka.Topic("order", "cancelled")
)

const (
	AggregateTypeOrder = "order"
	SourceOrderService = "order-service"
)

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	ClientID    string          `json:"client_id"`
	Status      string          `json:"status"`
	Items       []OrderItemData `json:"items"`
	Subtotal    string          `json:"subtotal"`
	Shipping    string          `json:"shipping_cost"`
	Total       string          `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// OrderCancelledData is the payload for an order.cancelled event. Released
// lists the stock put back per product.
type OrderCancelledData struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	ClientID    string          `json:"client_id"`
	Released    []OrderItemData `json:"released"`
}

// Publisher is the part of pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes order domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the order service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func itemData(items []domain.OrderItem) []OrderItemData {
	out := make([]OrderItemData, len(items))
	for i, item := range items {
		out[i] = OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		}
	}
	return out
}

func (p *Producer) publish(ctx context.Context, topic, orderID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, orderID, AggregateTypeOrder, SourceOrderService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	// The actor may be an admin acting on someone else's order.
	if id := logger.ClientIDFromContext(ctx); id != "" {
		event.WithMetadata("actor_id", id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published order event",
		slog.String("topic", topic),
		slog.String("order_id", orderID),
	)
	return nil
}

// PublishOrderCreated publishes an order.created event with the order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderCreated, o.ID, OrderCreatedData{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ClientID:    o.ClientID,
		Status:      string(o.Status),
		Items:       itemData(o.Items),
		Subtotal:    o.Subtotal.StringFixed(2),
		Shipping:    o.ShippingCost.StringFixed(2),
		Total:       o.Total.StringFixed(2),
		CreatedAt:   o.CreatedAt,
	})
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, old domain.OrderStatus) error {
	return p.publish(ctx, TopicOrderStatusChanged, o.ID, OrderStatusChangedData{
		OrderID:   o.ID,
		OldStatus: string(old),
		NewStatus: string(o.Status),
	})
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderCancelled, o.ID, OrderCancelledData{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		ClientID:    o.ClientID,
		Released:    itemData(o.Items),
	})
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) PublishOrderCreated(context.Context, *domain.Order) error { return nil }
func (Nop) PublishOrderStatusChanged(context.Context, *domain.Order, domain.OrderStatus) error {
	return nil
}
func (Nop) PublishOrderCancelled(context.Context, *domain.Order) error { return nil }
