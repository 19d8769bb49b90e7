package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/local"
	"storesync/internal/model"
	"storesync/internal/store"
)

func newTestSyncer(t *testing.T, remote store.OrderStore, opts ...Option) (*Syncer, *local.Store) {
	t.Helper()
	localStore := local.NewStore(local.NewMemory())
	return New(remote, localStore, opts...), localStore
}

func testOrder(serial string, prices ...int64) model.Order {
	o := model.Order{
		Serial:    serial,
		Status:    "pending",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, p := range prices {
		o.Items = append(o.Items, model.OrderItem{
			ProductType: "hoodie",
			Size:        "M",
			Quantity:    1,
			Price:       decimal.NewFromInt(p),
		})
	}
	return o
}

func TestSyncOrders_SkipsExistingMigratesNew(t *testing.T) {
	remote := store.NewMemory()
	s, _ := newTestSyncer(t, remote)
	ctx := context.Background()

	// Seed one order remotely, then sync it together with a new one.
	_, err := remote.Insert(ctx, "t1", testOrder("1001", 100))
	require.NoError(t, err)

	res, err := s.SyncOrders(ctx, "t1", []model.Order{testOrder("1001", 100), testOrder("1002", 50)})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Migrated)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, res.AlreadySynced)
	assert.Equal(t, 2, remote.OrderCount("t1"))

	require.Len(t, res.Records, 2)
	assert.Equal(t, OutcomeSkipped, res.Records[0].Status)
	assert.Equal(t, OutcomeMigrated, res.Records[1].Status)
	assert.NotEmpty(t, res.Records[1].RemoteID)
}

func TestSyncOrders_Idempotent(t *testing.T) {
	remote := store.NewMemory()
	s, _ := newTestSyncer(t, remote)
	ctx := context.Background()
	batch := []model.Order{testOrder("1", 10), testOrder("2", 20), testOrder("3", 30)}

	first, err := s.SyncOrders(ctx, "t1", batch)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Migrated)
	countAfterFirst := remote.OrderCount("t1")

	second, err := s.SyncOrders(ctx, "t1", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Migrated)
	assert.Equal(t, 3, second.Skipped)
	assert.True(t, second.AlreadySynced)
	assert.Equal(t, countAfterFirst, remote.OrderCount("t1"))
}

func TestSyncOrders_FaultIsolation(t *testing.T) {
	remote := store.NewMemory()
	boom := errors.New("connection reset")
	remote.FailOn = func(key string) error {
		if key == "2" {
			return boom
		}
		return nil
	}
	s, _ := newTestSyncer(t, remote)

	res, err := s.SyncOrders(context.Background(), "t1",
		[]model.Order{testOrder("1", 10), testOrder("2", 20), testOrder("3", 30)})
	require.NoError(t, err)

	// The failing record must not abort the batch.
	assert.Equal(t, 2, res.Migrated)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, OutcomeFailed, res.Records[1].Status)
	assert.Contains(t, res.Records[1].Reason, "connection reset")
	assert.Equal(t, 2, remote.OrderCount("t1"))
}

func TestSyncOrders_FailedInsertRetriesWithItems(t *testing.T) {
	remote := store.NewMemory()
	boom := errors.New("write timeout")
	remote.FailOn = func(key string) error {
		if key == "1001" {
			return boom
		}
		return nil
	}
	s, _ := newTestSyncer(t, remote)
	batch := []model.Order{testOrder("1001", 100, 50)}

	first, err := s.SyncOrders(context.Background(), "t1", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)
	// The failed insert must leave nothing remote, or the retry below would
	// skip the serial and its items would be lost for good.
	assert.Equal(t, 0, remote.OrderCount("t1"))

	remote.FailOn = nil
	second, err := s.SyncOrders(context.Background(), "t1", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Migrated)
	assert.Equal(t, 0, second.Skipped)

	rows, err := remote.List(context.Background(), "t1", store.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Order.Items, 2, "order must be remote with its items")
}

func TestSyncOrders_ValidationRejectedBeforeWrite(t *testing.T) {
	remote := store.NewMemory()
	s, _ := newTestSyncer(t, remote)

	bad := testOrder("1", 10)
	bad.Items[0].Quantity = 0

	res, err := s.SyncOrders(context.Background(), "t1", []model.Order{bad})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, remote.OrderCount("t1"), "no partial write on validation reject")
}

func TestSyncOrders_NotAuthenticated(t *testing.T) {
	remote := store.NewMemory()
	remote.FailOn = func(string) error {
		t.Fatal("store must not be touched when not authenticated")
		return nil
	}
	s, _ := newTestSyncer(t, remote)

	_, err := s.SyncOrders(context.Background(), "", []model.Order{testOrder("1", 10)})
	assert.ErrorIs(t, err, store.ErrNotAuthenticated)
}

func TestSyncOrders_TenantGuard(t *testing.T) {
	remote := store.NewMemory()
	guard := NewTenantGuard()
	s, _ := newTestSyncer(t, remote, WithGuard(guard))

	require.True(t, guard.TryAcquire("t1"))
	_, err := s.SyncOrders(context.Background(), "t1", nil)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// A different tenant is unaffected.
	_, err = s.SyncOrders(context.Background(), "t2", nil)
	assert.NoError(t, err)

	guard.Release("t1")
	_, err = s.SyncOrders(context.Background(), "t1", nil)
	assert.NoError(t, err)
}

func TestSyncOrders_CancelledBetweenRecords(t *testing.T) {
	remote := store.NewMemory()
	s, _ := newTestSyncer(t, remote)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.SyncOrders(ctx, "t1", []model.Order{testOrder("1", 10)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Migrated)
	assert.Equal(t, 0, remote.OrderCount("t1"))
}

func TestSyncLocal_ArchivesMigratedBatch(t *testing.T) {
	remote := store.NewMemory()
	arch := local.NewArchiver(t.TempDir())
	events := &captureEvents{}
	s, localStore := newTestSyncer(t, remote, WithArchiver(arch), WithEvents(events))

	require.NoError(t, localStore.SaveOrders("t1", []model.Order{testOrder("1", 10), testOrder("2", 20)}))

	res, err := s.SyncLocal(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Migrated)
	require.NotEmpty(t, res.ArchiveID)

	archived, err := arch.ReadArchive("t1", res.ArchiveID)
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	m, err := arch.ReadLatestManifest("t1")
	require.NoError(t, err)
	assert.Equal(t, res.ArchiveID, m.ArchiveID)
	assert.Equal(t, 2, m.Orders)

	require.Len(t, events.events, 1)
	assert.Equal(t, EventOrdersSynced, events.events[0].Kind)
	assert.Equal(t, 2, events.events[0].Migrated)
}

func TestSyncLocal_NoEventWhenNothingMigrated(t *testing.T) {
	remote := store.NewMemory()
	events := &captureEvents{}
	s, localStore := newTestSyncer(t, remote, WithEvents(events))

	require.NoError(t, localStore.SaveOrders("t1", []model.Order{testOrder("1", 10)}))

	_, err := s.SyncLocal(context.Background(), "t1")
	require.NoError(t, err)

	res, err := s.SyncLocal(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, res.AlreadySynced)
	assert.Len(t, events.events, 1, "second run must not publish")
}

type captureEvents struct {
	events []Event
}

func (c *captureEvents) Publish(e Event) error {
	c.events = append(c.events, e)
	return nil
}
