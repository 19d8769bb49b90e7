package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// Pebble persists collections in a PebbleDB directory. The session is the
// single writer, so a plain mutex around the serial counter is enough.
type Pebble struct {
	db  *pebble.DB
	log *zap.Logger
	mu  sync.Mutex
}

func NewPebble(dir string, log *zap.Logger) (*Pebble, error) {
	opts := &pebble.Options{
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 8,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pebble{db: db, log: log}, nil
}

func (p *Pebble) Close() error { return p.db.Close() }

func (p *Pebble) Get(tenantID, name string, out any) (bool, error) {
	key := []byte(collectionKey(tenantID, name))
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("pebble get %s: %w", name, err)
	}
	data := append([]byte(nil), val...)
	_ = closer.Close()

	if err := json.Unmarshal(data, out); err != nil {
		// Corrupt collection: reset to empty default rather than propagate.
		p.log.Warn("resetting corrupt local collection",
			zap.String("tenant", tenantID),
			zap.String("collection", name),
			zap.Error(err))
		if derr := p.db.Delete(key, pebble.Sync); derr != nil {
			return false, fmt.Errorf("pebble reset %s: %w", name, derr)
		}
		return false, nil
	}
	return true, nil
}

func (p *Pebble) Put(tenantID, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := p.db.Set([]byte(collectionKey(tenantID, name)), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", name, err)
	}
	return nil
}

func (p *Pebble) Delete(tenantID, name string) error {
	if err := p.db.Delete([]byte(collectionKey(tenantID, name)), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", name, err)
	}
	return nil
}

const serialCollection = "__serial__"

func (p *Pebble) NextSerial(tenantID string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cur int64
	if _, err := p.Get(tenantID, serialCollection, &cur); err != nil {
		return 0, err
	}
	cur++
	if err := p.Put(tenantID, serialCollection, cur); err != nil {
		return 0, err
	}
	return cur, nil
}
