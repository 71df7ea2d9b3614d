package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. AvailableQuantity never drops below zero.
// Inactive products stay in the table so historical order lines keep
// their reference.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	ImageURL          string          `json:"image_url,omitempty"`
	SKU               string          `json:"sku"`
	Active            bool            `json:"active"`
	Featured          bool            `json:"featured"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
