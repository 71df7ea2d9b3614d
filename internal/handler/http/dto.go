package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/ordercore/internal/domain"
)

// money renders an amount with exactly two decimals, e.g. "60.00".
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// --- Response DTOs ---

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

// OrderResponse is the full order representation.
type OrderResponse struct {
	ID                 string              `json:"id"`
	ClientID           string              `json:"client_id"`
	OrderNumber        string              `json:"order_number"`
	Status             domain.OrderStatus  `json:"status"`
	Subtotal           string              `json:"subtotal"`
	ShippingCost       string              `json:"shipping_cost"`
	Tax                string              `json:"tax"`
	Discount           string              `json:"discount"`
	Total              string              `json:"total"`
	ShippingAddress    string              `json:"shipping_address"`
	ShippingCity       string              `json:"shipping_city"`
	ShippingPostalCode string              `json:"shipping_postal_code"`
	ShippingState      string              `json:"shipping_state,omitempty"`
	ShippingCountry    string              `json:"shipping_country"`
	Notes              string              `json:"notes,omitempty"`
	DiscountCode       string              `json:"discount_code,omitempty"`
	Paid               bool                `json:"paid"`
	PaymentReference   string              `json:"payment_reference,omitempty"`
	PaidAt             *time.Time          `json:"paid_at"`
	ShippedAt          *time.Time          `json:"shipped_at"`
	DeliveredAt        *time.Time          `json:"delivered_at"`
	Items              []OrderItemResponse `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			Subtotal:    money(it.Subtotal),
		}
	}

	return OrderResponse{
		ID:                 o.ID,
		ClientID:           o.ClientID,
		OrderNumber:        o.OrderNumber,
		Status:             o.Status,
		Subtotal:           money(o.Subtotal),
		ShippingCost:       money(o.ShippingCost),
		Tax:                money(o.Tax),
		Discount:           money(o.Discount),
		Total:              money(o.Total),
		ShippingAddress:    o.Shipping.Address,
		ShippingCity:       o.Shipping.City,
		ShippingPostalCode: o.Shipping.PostalCode,
		ShippingState:      o.Shipping.State,
		ShippingCountry:    o.Shipping.Country,
		Notes:              o.Notes,
		DiscountCode:       o.DiscountCode,
		Paid:               o.Paid,
		PaymentReference:   o.PaymentReference,
		PaidAt:             o.PaidAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		Items:              items,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// OrderSummaryResponse is one row of the order list.
type OrderSummaryResponse struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"order_number"`
	Status      domain.OrderStatus `json:"status"`
	Total       string             `json:"total"`
	ItemsCount  int                `json:"items_count"`
	CreatedAt   time.Time          `json:"created_at"`
}

func newOrderSummaries(orders []domain.OrderSummary) []OrderSummaryResponse {
	out := make([]OrderSummaryResponse, len(orders))
	for i, o := range orders {
		out[i] = OrderSummaryResponse{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Status:      o.Status,
			Total:       money(o.Total),
			ItemsCount:  o.ItemsCount,
			CreatedAt:   o.CreatedAt,
		}
	}
	return out
}

// ProductResponse is the catalog representation of a product.
type ProductResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Price             string    `json:"price"`
	AvailableQuantity int       `json:"available_quantity"`
	ImageURL          string    `json:"image_url,omitempty"`
	SKU               string    `json:"sku"`
	Active            bool      `json:"active"`
	Featured          bool      `json:"featured"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Price:             money(p.Price),
		AvailableQuantity: p.AvailableQuantity,
		ImageURL:          p.ImageURL,
		SKU:               p.SKU,
		Active:            p.Active,
		Featured:          p.Featured,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func newProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = newProductResponse(&products[i])
	}
	return out
}
