package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storesync/internal/model"
)

// Manifest records the most recent archive for a tenant.
type Manifest struct {
	ArchiveID            string `json:"archiveId"`
	TenantID             string `json:"tenantId"`
	Orders               int    `json:"orders"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

// Archiver writes migrated order batches to per-archive JSON files. The
// archive is a recovery backup, not a deletion: the local copy stays intact
// until the operator clears it.
type Archiver struct {
	baseDir string
}

func NewArchiver(baseDir string) *Archiver {
	return &Archiver{baseDir: baseDir}
}

// now is split out for tests.
var now = func() time.Time { return time.Now().UTC() }

// NewArchiveID returns a timestamp-based archive identifier.
func NewArchiveID() string {
	return now().Format("20060102T150405Z")
}

func (a *Archiver) WriteArchive(tenantID, archiveID string, orders []model.Order) error {
	dir := filepath.Join(a.baseDir, tenantID, archiveID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	out, err := os.Create(filepath.Join(dir, "orders.json"))
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(orders); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return a.publishManifest(tenantID, archiveID, len(orders))
}

func (a *Archiver) publishManifest(tenantID, archiveID string, count int) error {
	m := Manifest{
		ArchiveID:            archiveID,
		TenantID:             tenantID,
		Orders:               count,
		CreatedAtEpochSecond: now().Unix(),
	}
	out, err := os.Create(filepath.Join(a.baseDir, tenantID, "manifest.latest.json"))
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// ReadLatestManifest returns the most recent archive manifest for a tenant.
func (a *Archiver) ReadLatestManifest(tenantID string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(a.baseDir, tenantID, "manifest.latest.json"))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// ReadArchive loads the orders of one archived batch.
func (a *Archiver) ReadArchive(tenantID, archiveID string) ([]model.Order, error) {
	data, err := os.ReadFile(filepath.Join(a.baseDir, tenantID, archiveID, "orders.json"))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var orders []model.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal archive: %w", err)
	}
	return orders, nil
}

// RestoreArchive loads an archived batch back into the tenant's local order
// collection, replacing its current contents.
func (a *Archiver) RestoreArchive(s *Store, tenantID, archiveID string) (int, error) {
	orders, err := a.ReadArchive(tenantID, archiveID)
	if err != nil {
		return 0, err
	}
	if err := s.SaveOrders(tenantID, orders); err != nil {
		return 0, fmt.Errorf("restore orders: %w", err)
	}
	return len(orders), nil
}
