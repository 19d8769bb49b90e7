// seedlocal fills a local store with sample orders and products for
// development runs of syncd.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"storesync/internal/local"
	"storesync/internal/model"
	"storesync/internal/status"
)

func main() {
	var (
		tenantID string
		dir      string
		count    int
	)
	flag.StringVar(&tenantID, "tenant", "dev", "tenant id")
	flag.StringVar(&dir, "dir", "./data/local", "local store directory")
	flag.IntVar(&count, "orders", 20, "number of orders to generate")
	flag.Parse()

	if err := seed(tenantID, dir, count); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func seed(tenantID, dir string, count int) error {
	collections, err := local.NewPebble(dir, nil)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer collections.Close()
	s := local.NewStore(collections)

	products := sampleProducts()
	if err := s.SaveProducts(tenantID, products); err != nil {
		return fmt.Errorf("save products: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	statuses := status.Defaults()
	orders := make([]model.Order, 0, count)
	for i := 0; i < count; i++ {
		serial, err := s.NextSerial(tenantID)
		if err != nil {
			return fmt.Errorf("next serial: %w", err)
		}
		p := products[rng.Intn(len(products))]
		size := p.Sizes[rng.Intn(len(p.Sizes))]
		qty := int64(1 + rng.Intn(4))
		o := model.Order{
			Serial:       serial,
			Status:       statuses[rng.Intn(len(statuses))].Key,
			ShippingCost: decimal.NewFromInt(int64(rng.Intn(30))),
			Deposit:      decimal.NewFromInt(int64(rng.Intn(50))),
			Items: []model.OrderItem{{
				ProductType: p.Name,
				Size:        size.Size,
				Quantity:    qty,
				Cost:        size.Cost,
				Price:       size.Price,
			}},
			CreatedAt: time.Now().UTC(),
		}
		orders = append(orders, o)
	}
	if err := s.SaveOrders(tenantID, orders); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}

	fmt.Fprintf(os.Stdout, "seeded %d orders and %d products for tenant %s in %s\n",
		len(orders), len(products), tenantID, dir)
	return nil
}

func sampleProducts() []model.Product {
	price := func(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
	return []model.Product{
		{Name: "hoodie", Sizes: []model.ProductSize{
			{Size: "S", Cost: price(12), Price: price(35)},
			{Size: "M", Cost: price(12), Price: price(35)},
			{Size: "L", Cost: price(13), Price: price(38)},
		}},
		{Name: "tshirt", Sizes: []model.ProductSize{
			{Size: "M", Cost: price(5), Price: price(18)},
			{Size: "L", Cost: price(5), Price: price(18)},
		}},
		{Name: "mug", Sizes: []model.ProductSize{
			{Size: "std", Cost: price(3), Price: price(12)},
		}},
	}
}
