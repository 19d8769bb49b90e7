// Package finance derives trustworthy monetary totals for an order from its
// line items. Historical rows exist where the stored total was mistakenly
// populated with the post-deposit remaining balance, so whenever items are
// present the total is recomputed from them instead of trusted.
package finance

import (
	"github.com/shopspring/decimal"

	"storesync/internal/model"
)

// ItemTotal is one reconciled line.
type ItemTotal struct {
	ProductType string
	Size        string
	Quantity    int64
	Total       decimal.Decimal
}

// Breakdown is the reconciled money view of a single order.
type Breakdown struct {
	Items     []ItemTotal
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// Reconcile computes the breakdown for one order. Pure and deterministic;
// every report, invoice and dashboard must use this single function rather
// than re-deriving totals.
func Reconcile(o model.Order) Breakdown {
	b := Breakdown{
		Shipping: o.ShippingCost,
		Discount: o.Discount,
	}
	subtotal := decimal.Zero
	for _, it := range o.Items {
		t := itemTotal(it)
		subtotal = subtotal.Add(t)
		b.Items = append(b.Items, ItemTotal{
			ProductType: it.ProductType,
			Size:        it.Size,
			Quantity:    it.Quantity,
			Total:       t,
		})
	}
	b.Subtotal = subtotal

	if len(o.Items) > 0 {
		b.Total = subtotal.Add(b.Shipping).Sub(b.Discount)
		// An order-level discount may exceed subtotal plus shipping; the
		// total never goes below zero.
		if b.Total.IsNegative() {
			b.Total = decimal.Zero
		}
	} else {
		// No items to recompute from: the stored total is all we have.
		b.Total = o.Total
	}
	b.Paid = o.Deposit.Add(o.PaymentsReceived)

	b.Remaining = b.Total.Sub(b.Paid)
	if b.Remaining.IsNegative() {
		b.Remaining = decimal.Zero
	}
	return b
}

// itemTotal prefers a pre-computed line total; otherwise the line discount
// is an absolute deduction, not per-unit.
func itemTotal(it model.OrderItem) decimal.Decimal {
	if it.TotalPrice != nil {
		return *it.TotalPrice
	}
	qty := decimal.NewFromInt(it.Quantity)
	return it.Price.Mul(qty).Sub(it.ItemDiscount)
}

// Summary aggregates reconciled money across a set of orders.
type Summary struct {
	Orders      int
	Revenue     decimal.Decimal
	Collected   decimal.Decimal
	Outstanding decimal.Decimal
}

// Summarize folds Reconcile over orders. Reports use it so every aggregate
// goes through the same recomputation.
func Summarize(orders []model.Order) Summary {
	s := Summary{
		Revenue:     decimal.Zero,
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, o := range orders {
		b := Reconcile(o)
		s.Orders++
		s.Revenue = s.Revenue.Add(b.Total)
		s.Collected = s.Collected.Add(b.Paid)
		s.Outstanding = s.Outstanding.Add(b.Remaining)
	}
	return s
}
