package local

import (
	"testing"

	"github.com/shopspring/decimal"

	"storesync/internal/model"
)

func TestCollections_RoundTrip(t *testing.T) {
	s := NewStore(NewMemory())

	orders := []model.Order{
		{Serial: "1", Status: "pending", Total: decimal.NewFromInt(100)},
		{Serial: "2", Status: "confirmed", Total: decimal.NewFromInt(250)},
	}
	if err := s.SaveOrders("t1", orders); err != nil {
		t.Fatalf("save orders: %v", err)
	}
	got, err := s.Orders("t1")
	if err != nil {
		t.Fatalf("load orders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	if got[0].Serial != "1" || !got[1].Total.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCollections_AbsenceIsEmpty(t *testing.T) {
	s := NewStore(NewMemory())

	orders, err := s.Orders("never-seen")
	if err != nil {
		t.Fatalf("load orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected empty orders, got %d", len(orders))
	}
	prices, err := s.ProposedPrices("never-seen")
	if err != nil {
		t.Fatalf("load prices: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected empty prices, got %d", len(prices))
	}
	_, ok, err := s.StatusConfigs("never-seen")
	if err != nil {
		t.Fatalf("load status configs: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unstored status configs")
	}
}

func TestProposedPrices_RoundTrip(t *testing.T) {
	s := NewStore(NewMemory())

	in := map[string]decimal.Decimal{
		model.PriceKey("hoodie", "M"): decimal.NewFromInt(38),
		model.PriceKey("mug", "std"):  decimal.NewFromInt(14),
	}
	if err := s.SaveProposedPrices("t1", in); err != nil {
		t.Fatalf("save prices: %v", err)
	}
	got, err := s.ProposedPrices("t1")
	if err != nil {
		t.Fatalf("load prices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(got))
	}
	if !got["hoodie|M"].Equal(decimal.NewFromInt(38)) {
		t.Fatalf("price mismatch: %v", got["hoodie|M"])
	}
}

func TestCollections_TenantScoped(t *testing.T) {
	s := NewStore(NewMemory())

	if err := s.SaveOrders("t1", []model.Order{{Serial: "1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	other, err := s.Orders("t2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("t2 must not see t1 orders, got %d", len(other))
	}
}

func TestCollections_CorruptResetsThatCollectionOnly(t *testing.T) {
	mem := NewMemory()
	s := NewStore(mem)

	if err := s.SaveProducts("t1", []model.Product{{Name: "hoodie"}}); err != nil {
		t.Fatalf("save products: %v", err)
	}
	mem.PutRaw("t1", CollectionOrders, []byte(`{"not an order list"`))

	orders, err := s.Orders("t1")
	if err != nil {
		t.Fatalf("corrupt collection must not error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("corrupt collection must read as empty, got %d", len(orders))
	}

	// The sibling collection survives the reset.
	products, err := s.Products("t1")
	if err != nil {
		t.Fatalf("load products: %v", err)
	}
	if len(products) != 1 || products[0].Name != "hoodie" {
		t.Fatalf("products collection damaged by reset: %+v", products)
	}

	// The reset is persistent: the corrupt bytes are gone.
	var raw any
	if ok, _ := mem.Get("t1", CollectionOrders, &raw); ok {
		t.Fatal("corrupt collection key should have been deleted")
	}
}

func TestNextSerial_Monotonic(t *testing.T) {
	s := NewStore(NewMemory())

	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 5; i++ {
		serial, err := s.NextSerial("t1")
		if err != nil {
			t.Fatalf("next serial: %v", err)
		}
		if seen[serial] {
			t.Fatalf("serial %q handed out twice", serial)
		}
		seen[serial] = true
		if serial <= prev && len(serial) == len(prev) {
			t.Fatalf("serial %q not after %q", serial, prev)
		}
		prev = serial
	}
	if got, _ := s.NextSerial("t2"); got != "1" {
		t.Fatalf("serials must be per tenant, t2 got %q", got)
	}
}

func TestPebble_RoundTripAndReopen(t *testing.T) {
	dir := t.TempDir()

	p, err := NewPebble(dir, nil)
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	s := NewStore(p)
	if err := s.SaveOrders("t1", []model.Order{{Serial: "7", Status: "pending"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.NextSerial("t1"); err != nil {
		t.Fatalf("next serial: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Both the collection and the serial counter survive a restart.
	p2, err := NewPebble(dir, nil)
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	defer p2.Close()
	s2 := NewStore(p2)
	orders, err := s2.Orders("t1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if len(orders) != 1 || orders[0].Serial != "7" {
		t.Fatalf("orders lost across reopen: %+v", orders)
	}
	serial, err := s2.NextSerial("t1")
	if err != nil {
		t.Fatalf("next serial after reopen: %v", err)
	}
	if serial != "2" {
		t.Fatalf("serial counter reset across reopen, got %q", serial)
	}
}

func TestArchive_WriteReadRestore(t *testing.T) {
	arch := NewArchiver(t.TempDir())
	s := NewStore(NewMemory())

	batch := []model.Order{
		{Serial: "1", Status: "delivered", Total: decimal.NewFromInt(320)},
		{Serial: "2", Status: "delivered", Total: decimal.NewFromInt(45)},
	}
	id := NewArchiveID()
	if err := arch.WriteArchive("t1", id, batch); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	m, err := arch.ReadLatestManifest("t1")
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m.ArchiveID != id || m.Orders != 2 || m.TenantID != "t1" {
		t.Fatalf("manifest mismatch: %+v", m)
	}

	restored, err := arch.RestoreArchive(s, "t1", m.ArchiveID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != 2 {
		t.Fatalf("expected 2 restored orders, got %d", restored)
	}
	orders, err := s.Orders("t1")
	if err != nil {
		t.Fatalf("load restored orders: %v", err)
	}
	if len(orders) != 2 || !orders[0].Total.Equal(decimal.NewFromInt(320)) {
		t.Fatalf("restored orders mismatch: %+v", orders)
	}
}

func TestArchive_LatestManifestTracksNewestBatch(t *testing.T) {
	arch := NewArchiver(t.TempDir())

	if err := arch.WriteArchive("t1", "20240101T000000Z", []model.Order{{Serial: "1"}}); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := arch.WriteArchive("t1", "20240102T000000Z", []model.Order{{Serial: "2"}, {Serial: "3"}}); err != nil {
		t.Fatalf("write second: %v", err)
	}

	m, err := arch.ReadLatestManifest("t1")
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m.ArchiveID != "20240102T000000Z" || m.Orders != 2 {
		t.Fatalf("latest manifest not updated: %+v", m)
	}

	// Earlier batches stay readable by id.
	first, err := arch.ReadArchive("t1", "20240101T000000Z")
	if err != nil {
		t.Fatalf("read first archive: %v", err)
	}
	if len(first) != 1 || first[0].Serial != "1" {
		t.Fatalf("first archive mismatch: %+v", first)
	}
}
