package store

import (
	"fmt"

	"storesync/internal/model"
)

// ValidateOrder rejects malformed orders before any store mutation is
// attempted, so a reject never leaves a partial write behind.
func ValidateOrder(o model.Order) error {
	if o.Serial == "" {
		return &ValidationError{Field: "serial", Reason: "must not be empty"}
	}
	if o.ShippingCost.IsNegative() {
		return &ValidationError{Field: "shippingCost", Reason: "must not be negative"}
	}
	if o.Discount.IsNegative() {
		return &ValidationError{Field: "discount", Reason: "must not be negative"}
	}
	if o.Deposit.IsNegative() {
		return &ValidationError{Field: "deposit", Reason: "must not be negative"}
	}
	for i, it := range o.Items {
		if err := validateItem(i, it); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(idx int, it model.OrderItem) error {
	if it.Quantity <= 0 {
		return &ValidationError{Field: itemField(idx, "quantity"), Reason: "must be positive"}
	}
	if it.Cost.IsNegative() {
		return &ValidationError{Field: itemField(idx, "cost"), Reason: "must not be negative"}
	}
	if it.Price.IsNegative() {
		return &ValidationError{Field: itemField(idx, "price"), Reason: "must not be negative"}
	}
	return nil
}

// ValidateProduct rejects catalog entries with empty names or duplicate
// size labels.
func ValidateProduct(p model.Product) error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	seen := make(map[string]struct{}, len(p.Sizes))
	for _, s := range p.Sizes {
		if s.Size == "" {
			return &ValidationError{Field: "sizes", Reason: "size label must not be empty"}
		}
		if _, dup := seen[s.Size]; dup {
			return &ValidationError{Field: "sizes", Reason: "duplicate size label " + s.Size}
		}
		seen[s.Size] = struct{}{}
	}
	return nil
}

func itemField(idx int, name string) string {
	return fmt.Sprintf("items[%d].%s", idx, name)
}
