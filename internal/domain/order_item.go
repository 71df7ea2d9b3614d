package domain

import "github.com/shopspring/decimal"

// OrderItem is one product line of an order. UnitPrice is the catalog price
// at the time the order was placed; later price changes do not touch it.
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
