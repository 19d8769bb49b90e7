package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"storesync/internal/model"
)

// Memory is a thread-safe in-memory implementation of OrderStore and
// ProductStore. It backs tests and local development; FailOn lets tests
// inject a transient failure for a given serial or product name.
type Memory struct {
	mu       sync.RWMutex
	orders   map[string]map[string]RemoteOrder   // tenant -> serial -> order
	items    map[string][]model.OrderItem        // remoteID -> items
	products map[string]map[string]RemoteProduct // tenant -> name -> product

	// FailOn returns a non-nil error to simulate a store failure for the
	// given natural key. Nil means no injected failures.
	FailOn func(naturalKey string) error
}

func NewMemory() *Memory {
	return &Memory{
		orders:   make(map[string]map[string]RemoteOrder),
		items:    make(map[string][]model.OrderItem),
		products: make(map[string]map[string]RemoteProduct),
	}
}

func (m *Memory) injected(key string) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(key)
}

func (m *Memory) ExistsBySerial(ctx context.Context, tenantID, serial string) (bool, error) {
	if err := m.injected(serial); err != nil {
		return false, Transient("exists", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.orders[tenantID][serial]
	return ok, nil
}

// Insert writes the header and items as one atomic step, mirroring the
// transactional Postgres insert: a failure leaves nothing behind.
func (m *Memory) Insert(ctx context.Context, tenantID string, o model.Order) (string, error) {
	if err := ValidateOrder(o); err != nil {
		return "", err
	}
	if err := m.injected(o.Serial); err != nil {
		return "", Transient("insert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[tenantID][o.Serial]; ok {
		return "", ErrAlreadyExists
	}
	if m.orders[tenantID] == nil {
		m.orders[tenantID] = make(map[string]RemoteOrder)
	}
	id := uuid.NewString()
	header := o
	header.Items = nil
	m.orders[tenantID][o.Serial] = RemoteOrder{RemoteID: id, Order: header}
	m.items[id] = append([]model.OrderItem(nil), o.Items...)
	return id, nil
}

func (m *Memory) Update(ctx context.Context, remoteID string, patch OrderPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tenant, bySerial := range m.orders {
		for serial, ro := range bySerial {
			if ro.RemoteID != remoteID {
				continue
			}
			if patch.Status != nil {
				ro.Order.Status = *patch.Status
			}
			if patch.Deposit != nil {
				ro.Order.Deposit = *patch.Deposit
			}
			if patch.PaymentsReceived != nil {
				ro.Order.PaymentsReceived = *patch.PaymentsReceived
			}
			if patch.Total != nil {
				ro.Order.Total = *patch.Total
			}
			m.orders[tenant][serial] = ro
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Delete(ctx context.Context, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tenant, bySerial := range m.orders {
		for serial, ro := range bySerial {
			if ro.RemoteID == remoteID {
				delete(m.orders[tenant], serial)
				delete(m.items, remoteID)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *Memory) List(ctx context.Context, tenantID string, f OrderFilter) ([]RemoteOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []RemoteOrder
	for _, ro := range m.orders[tenantID] {
		if f.Status != "" && ro.Order.Status != f.Status {
			continue
		}
		if !f.Since.IsZero() && ro.Order.CreatedAt.Before(f.Since) {
			continue
		}
		ro.Order.Items = append([]model.OrderItem(nil), m.items[ro.RemoteID]...)
		out = append(out, ro)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// OrderCount reports the number of remote order rows for a tenant. Tests
// use it to assert idempotence.
func (m *Memory) OrderCount(tenantID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders[tenantID])
}

// Products returns the ProductStore view of m. A separate view is needed
// because OrderStore and ProductStore overlap in method names.
func (m *Memory) Products() ProductStore { return memoryProducts{m} }

type memoryProducts struct{ m *Memory }

func (p memoryProducts) ExistsByName(ctx context.Context, tenantID, name string) (bool, error) {
	return p.m.ProductExistsByName(ctx, tenantID, name)
}

func (p memoryProducts) List(ctx context.Context, tenantID string) ([]RemoteProduct, error) {
	return p.m.ListProducts(ctx, tenantID)
}

func (p memoryProducts) Insert(ctx context.Context, tenantID string, prod model.Product) (string, error) {
	return p.m.InsertProduct(ctx, tenantID, prod)
}

func (p memoryProducts) Update(ctx context.Context, remoteID string, prod model.Product) error {
	return p.m.UpdateProduct(ctx, remoteID, prod)
}

func (p memoryProducts) Delete(ctx context.Context, remoteID string) error {
	return p.m.DeleteProduct(ctx, remoteID)
}

func (m *Memory) ProductExistsByName(ctx context.Context, tenantID, name string) (bool, error) {
	if err := m.injected(name); err != nil {
		return false, Transient("exists by name", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.products[tenantID][name]
	return ok, nil
}

func (m *Memory) ListProducts(ctx context.Context, tenantID string) ([]RemoteProduct, error) {
	if err := m.injected("products:list"); err != nil {
		return nil, Transient("list products", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RemoteProduct, 0, len(m.products[tenantID]))
	for _, rp := range m.products[tenantID] {
		out = append(out, rp)
	}
	return out, nil
}

func (m *Memory) InsertProduct(ctx context.Context, tenantID string, p model.Product) (string, error) {
	if err := ValidateProduct(p); err != nil {
		return "", err
	}
	if err := m.injected(p.Name); err != nil {
		return "", Transient("insert product", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[tenantID][p.Name]; ok {
		return "", ErrAlreadyExists
	}
	if m.products[tenantID] == nil {
		m.products[tenantID] = make(map[string]RemoteProduct)
	}
	id := uuid.NewString()
	m.products[tenantID][p.Name] = RemoteProduct{RemoteID: id, Product: p}
	return id, nil
}

func (m *Memory) UpdateProduct(ctx context.Context, remoteID string, p model.Product) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for tenant, byName := range m.products {
		for name, rp := range byName {
			if rp.RemoteID != remoteID {
				continue
			}
			delete(m.products[tenant], name)
			m.products[tenant][p.Name] = RemoteProduct{RemoteID: remoteID, Product: p}
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) DeleteProduct(ctx context.Context, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tenant, byName := range m.products {
		for name, rp := range byName {
			if rp.RemoteID == remoteID {
				delete(m.products[tenant], name)
				return nil
			}
		}
	}
	return ErrNotFound
}
