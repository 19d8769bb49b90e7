package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Earlier storefront versions persisted orders with drifting field names:
// the item list lived under "items", "order_items" or "cart", quantities
// under "quantity" or "qty", unit prices under "price" or "unit_price",
// and line totals under "totalPrice" or "total_price". Decoding normalizes
// all of them to the canonical Order/OrderItem shape at the store boundary,
// so nothing downstream ever sees a legacy variant.

type legacyOrder struct {
	Serial           string          `json:"serial"`
	Status           string          `json:"status"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	Discount         decimal.Decimal `json:"discount"`
	Deposit          decimal.Decimal `json:"deposit"`
	PaymentsReceived decimal.Decimal `json:"paymentsReceived"`
	Total            decimal.Decimal `json:"total"`
	Profit           decimal.Decimal `json:"profit"`
	CreatedAt        time.Time       `json:"createdAt"`

	Items      []legacyItem `json:"items"`
	OrderItems []legacyItem `json:"order_items"`
	Cart       []legacyItem `json:"cart"`
}

type legacyItem struct {
	ProductType  string          `json:"productType"`
	Type         string          `json:"type"`
	Size         string          `json:"size"`
	Quantity     int64           `json:"quantity"`
	Qty          int64           `json:"qty"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ItemDiscount decimal.Decimal `json:"itemDiscount"`

	TotalPrice      *decimal.Decimal `json:"totalPrice"`
	TotalPriceSnake *decimal.Decimal `json:"total_price"`
}

// UnmarshalJSON decodes both the canonical shape and every known legacy
// variant into the canonical one.
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw legacyOrder
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order{
		Serial:           raw.Serial,
		Status:           raw.Status,
		ShippingCost:     raw.ShippingCost,
		Discount:         raw.Discount,
		Deposit:          raw.Deposit,
		PaymentsReceived: raw.PaymentsReceived,
		Total:            raw.Total,
		Profit:           raw.Profit,
		CreatedAt:        raw.CreatedAt,
	}
	o.Items = normalizeItems(resolveItemList(raw))
	return nil
}

// resolveItemList picks whichever legacy field holds the item list. The
// first non-empty list wins; canonical "items" has priority.
func resolveItemList(raw legacyOrder) []legacyItem {
	switch {
	case len(raw.Items) > 0:
		return raw.Items
	case len(raw.OrderItems) > 0:
		return raw.OrderItems
	default:
		return raw.Cart
	}
}

func normalizeItems(in []legacyItem) []OrderItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]OrderItem, 0, len(in))
	for _, it := range in {
		out = append(out, normalizeItem(it))
	}
	return out
}

func normalizeItem(it legacyItem) OrderItem {
	n := OrderItem{
		ProductType:  it.ProductType,
		Size:         it.Size,
		Quantity:     it.Quantity,
		Cost:         it.Cost,
		Price:        it.Price,
		ItemDiscount: it.ItemDiscount,
		TotalPrice:   it.TotalPrice,
	}
	if n.ProductType == "" {
		n.ProductType = it.Type
	}
	if n.Quantity == 0 {
		n.Quantity = it.Qty
	}
	if n.Price.IsZero() && !it.UnitPrice.IsZero() {
		n.Price = it.UnitPrice
	}
	if n.TotalPrice == nil {
		n.TotalPrice = it.TotalPriceSnake
	}
	return n
}
