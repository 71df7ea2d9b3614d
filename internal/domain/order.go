package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// ValidStatuses lists every status an order may hold.
func ValidStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

func (s OrderStatus) IsValid() bool {
	for _, v := range ValidStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// DefaultCountry is used when a shipping or client country is not given.
const DefaultCountry = "Italy"

// ShippingInfo is where an order is delivered.
type ShippingInfo struct {
	Address    string `json:"shipping_address"`
	City       string `json:"shipping_city"`
	PostalCode string `json:"shipping_postal_code"`
	State      string `json:"shipping_state,omitempty"`
	Country    string `json:"shipping_country"`
}

// Order is a client's purchase. Money fields are fixed-point with two
// fractional digits and always satisfy
// Total = Subtotal + ShippingCost + Tax - Discount.
type Order struct {
	ID          string      `json:"id"`
	ClientID    string      `json:"client_id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`

	Shipping     ShippingInfo `json:"shipping"`
	Notes        string       `json:"notes,omitempty"`
	DiscountCode string       `json:"discount_code,omitempty"`

	Paid             bool       `json:"paid"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	ShippedAt        *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`

	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ApplyStatus moves the order to status and records the matching
// timestamp. paid_at is written only on the first move to paid; shipped_at
// and delivered_at are overwritten every time.
func (o *Order) ApplyStatus(status OrderStatus, now time.Time) {
	o.Status = status
	switch status {
	case OrderStatusPaid:
		if !o.Paid {
			o.Paid = true
			o.PaidAt = &now
		}
	case OrderStatusShipped:
		o.ShippedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	}
	o.UpdatedAt = now
}

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending
}

// OrderSummary is the list view of an order.
type OrderSummary struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id"`
	OrderNumber string          `json:"order_number"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	ItemsCount  int             `json:"items_count"`
	CreatedAt   time.Time       `json:"created_at"`
}
