// restorelocal loads an archived order batch back into the local store,
// the recovery path for a local cache lost after a successful sync.
package main

import (
	"flag"
	"fmt"
	"log"

	"storesync/internal/local"
)

func main() {
	var (
		tenantID   string
		dir        string
		archiveDir string
		archiveID  string
	)
	flag.StringVar(&tenantID, "tenant", "", "tenant id")
	flag.StringVar(&dir, "dir", "./data/local", "local store directory")
	flag.StringVar(&archiveDir, "archive-dir", "./data/archives", "archive directory")
	flag.StringVar(&archiveID, "archive", "", "archive id (default: latest from manifest)")
	flag.Parse()

	if tenantID == "" {
		log.Fatal("restore: -tenant is required")
	}
	if err := restore(tenantID, dir, archiveDir, archiveID); err != nil {
		log.Fatalf("restore failed: %v", err)
	}
}

func restore(tenantID, dir, archiveDir, archiveID string) error {
	arch := local.NewArchiver(archiveDir)
	if archiveID == "" {
		m, err := arch.ReadLatestManifest(tenantID)
		if err != nil {
			return err
		}
		archiveID = m.ArchiveID
	}

	collections, err := local.NewPebble(dir, nil)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer collections.Close()

	n, err := arch.RestoreArchive(local.NewStore(collections), tenantID, archiveID)
	if err != nil {
		return err
	}
	fmt.Printf("restored %d orders from archive %s for tenant %s\n", n, archiveID, tenantID)
	return nil
}
