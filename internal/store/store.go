// Package store defines the authoritative record-store contract consumed by
// the sync engine and the catalog reconciler, together with the error
// taxonomy callers use to tell retryable I/O failures from rejects.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"storesync/internal/model"
)

// RemoteOrder pairs a store-assigned id with the canonical order record.
type RemoteOrder struct {
	RemoteID string
	Order    model.Order
}

// RemoteProduct pairs a store-assigned id with a catalog entry.
type RemoteProduct struct {
	RemoteID string
	Product  model.Product
}

// OrderFilter narrows List results.
type OrderFilter struct {
	Status string
	Since  time.Time
	Limit  int
}

// OrderPatch is a partial update; nil fields are left untouched.
type OrderPatch struct {
	Status           *string
	Deposit          *decimal.Decimal
	PaymentsReceived *decimal.Decimal
	Total            *decimal.Decimal
}

// OrderStore is the tenant-scoped order capability of the authoritative
// store. Existence is checked by serial, the natural key, never by a
// store-assigned id. Insert writes the header and every item in one
// transaction: an order is either fully remote or not remote at all, so a
// retry after a failure never finds a header without its items.
type OrderStore interface {
	ExistsBySerial(ctx context.Context, tenantID, serial string) (bool, error)
	Insert(ctx context.Context, tenantID string, o model.Order) (remoteID string, err error)
	Update(ctx context.Context, remoteID string, patch OrderPatch) error
	Delete(ctx context.Context, remoteID string) error
	List(ctx context.Context, tenantID string, f OrderFilter) ([]RemoteOrder, error)
}

// ProductStore is the remote mirror of the local product catalog. Product
// name is the natural key for reconciliation.
type ProductStore interface {
	ExistsByName(ctx context.Context, tenantID, name string) (bool, error)
	List(ctx context.Context, tenantID string) ([]RemoteProduct, error)
	Insert(ctx context.Context, tenantID string, p model.Product) (remoteID string, err error)
	Update(ctx context.Context, remoteID string, p model.Product) error
	Delete(ctx context.Context, remoteID string) error
}
