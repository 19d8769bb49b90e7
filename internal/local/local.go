// Package local implements the session-owned persisted collections: named
// JSON-serializable blobs plus the monotonically increasing serial counter.
// The local cache is untrusted scratch space; once a sync run mirrors a
// record remotely the remote store is the system of record.
package local

import (
	"strconv"

	"github.com/shopspring/decimal"

	"storesync/internal/model"
)

// Well-known collection names.
const (
	CollectionOrders       = "orders"
	CollectionProducts     = "products"
	CollectionPrices       = "proposed_prices"
	CollectionStatusConfig = "status_config"
)

// Collections is the raw persisted-collection capability. Absence of a key
// is a valid empty state, never an error. A collection holding malformed
// JSON is reset to its empty default on read; the rest of the local state
// is unaffected.
type Collections interface {
	// Get decodes the named collection into out. ok is false when the
	// collection is absent or was reset because it could not be decoded.
	Get(tenantID, name string, out any) (ok bool, err error)
	Put(tenantID, name string, v any) error
	Delete(tenantID, name string) error
	// NextSerial increments and persists the tenant's serial counter in one
	// step, so a crash can never hand out the same serial twice.
	NextSerial(tenantID string) (int64, error)
	Close() error
}

func collectionKey(tenantID, name string) string {
	return tenantID + "#" + name
}

// Store is the typed view over Collections used by the engines.
type Store struct {
	c Collections
}

func NewStore(c Collections) *Store { return &Store{c: c} }

func (s *Store) Collections() Collections { return s.c }

func (s *Store) Orders(tenantID string) ([]model.Order, error) {
	var orders []model.Order
	if _, err := s.c.Get(tenantID, CollectionOrders, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) SaveOrders(tenantID string, orders []model.Order) error {
	return s.c.Put(tenantID, CollectionOrders, orders)
}

func (s *Store) Products(tenantID string) ([]model.Product, error) {
	var products []model.Product
	if _, err := s.c.Get(tenantID, CollectionProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SaveProducts(tenantID string, products []model.Product) error {
	return s.c.Put(tenantID, CollectionProducts, products)
}

// ProposedPrices returns the proposed-price map keyed by
// model.PriceKey(productType, size).
func (s *Store) ProposedPrices(tenantID string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if _, err := s.c.Get(tenantID, CollectionPrices, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

func (s *Store) SaveProposedPrices(tenantID string, prices map[string]decimal.Decimal) error {
	return s.c.Put(tenantID, CollectionPrices, prices)
}

// StatusConfigs returns the tenant's stored status vocabulary. ok is false
// when none has been stored yet; callers fall back to the defaults.
func (s *Store) StatusConfigs(tenantID string) ([]model.StatusConfig, bool, error) {
	var configs []model.StatusConfig
	ok, err := s.c.Get(tenantID, CollectionStatusConfig, &configs)
	if err != nil {
		return nil, false, err
	}
	return configs, ok, nil
}

func (s *Store) SaveStatusConfigs(tenantID string, configs []model.StatusConfig) error {
	return s.c.Put(tenantID, CollectionStatusConfig, configs)
}

// NextSerial returns the next tenant-scoped order serial.
func (s *Store) NextSerial(tenantID string) (string, error) {
	n, err := s.c.NextSerial(tenantID)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}
