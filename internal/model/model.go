package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the canonical shape of an order record. Locally-created orders
// carry no remote id; Serial is the tenant-scoped natural key and is
// assigned once, monotonically, and never reused.
type Order struct {
	Serial           string          `json:"serial"`
	Status           string          `json:"status"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	Discount         decimal.Decimal `json:"discount"`
	Deposit          decimal.Decimal `json:"deposit"`
	PaymentsReceived decimal.Decimal `json:"paymentsReceived"`
	Total            decimal.Decimal `json:"total"`
	Profit           decimal.Decimal `json:"profit"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// OrderItem is a single line of an order. TotalPrice is nil unless the row
// carried a pre-computed line total; when nil the total is derivable as
// Price*Quantity - ItemDiscount.
type OrderItem struct {
	ProductType  string           `json:"productType"`
	Size         string           `json:"size"`
	Quantity     int64            `json:"quantity"`
	Cost         decimal.Decimal  `json:"cost"`
	Price        decimal.Decimal  `json:"price"`
	ItemDiscount decimal.Decimal  `json:"itemDiscount"`
	TotalPrice   *decimal.Decimal `json:"totalPrice,omitempty"`
}

// Product is a catalog entry. Name is the natural key used for
// reconciliation against the remote mirror. Size labels are unique within
// a product.
type Product struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Sizes []ProductSize `json:"sizes"`
}

// ProductSize is one sellable variant of a product.
type ProductSize struct {
	Size  string          `json:"size"`
	Cost  decimal.Decimal `json:"cost"`
	Price decimal.Decimal `json:"price"`
}

// StatusConfig is one entry of a tenant's order-status vocabulary.
// Key is the stable machine identifier; Label is user-editable display text.
// Disabled entries are hidden from selection but stay resolvable because
// historical orders may still carry the key.
type StatusConfig struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Order   int    `json:"order"`
	Enabled bool   `json:"enabled"`
}

// PriceKey builds the composite key of the proposed-price map.
func PriceKey(productType, size string) string {
	return productType + "|" + size
}
