package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/model"
)

func TestValidateOrder(t *testing.T) {
	valid := model.Order{
		Serial: "1001",
		Items: []model.OrderItem{
			{ProductType: "hoodie", Size: "M", Quantity: 2, Price: decimal.NewFromInt(30)},
		},
	}
	assert.NoError(t, ValidateOrder(valid))

	cases := []struct {
		name  string
		mut   func(o *model.Order)
		field string
	}{
		{"empty serial", func(o *model.Order) { o.Serial = "" }, "serial"},
		{"negative shipping", func(o *model.Order) { o.ShippingCost = decimal.NewFromInt(-1) }, "shippingCost"},
		{"negative discount", func(o *model.Order) { o.Discount = decimal.NewFromInt(-1) }, "discount"},
		{"zero quantity", func(o *model.Order) { o.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative price", func(o *model.Order) { o.Items[0].Price = decimal.NewFromInt(-5) }, "items[0].price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := valid
			o.Items = append([]model.OrderItem(nil), valid.Items...)
			tc.mut(&o)
			err := ValidateOrder(o)
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidateProduct(t *testing.T) {
	assert.NoError(t, ValidateProduct(model.Product{
		Name: "hoodie",
		Sizes: []model.ProductSize{
			{Size: "M", Price: decimal.NewFromInt(30)},
			{Size: "L", Price: decimal.NewFromInt(32)},
		},
	}))

	err := ValidateProduct(model.Product{Name: ""})
	assert.True(t, IsValidation(err))

	err = ValidateProduct(model.Product{
		Name:  "hoodie",
		Sizes: []model.ProductSize{{Size: "M"}, {Size: "M"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate size label")
}

func TestErrorClassification(t *testing.T) {
	tr := Transient("insert", errors.New("connection reset"))
	assert.True(t, IsTransient(tr))
	assert.False(t, IsValidation(tr))
	assert.Contains(t, tr.Error(), "insert")

	verr := &ValidationError{Field: "serial", Reason: "must not be empty"}
	assert.True(t, IsValidation(verr))
	assert.False(t, IsTransient(verr))
}
