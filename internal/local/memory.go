package local

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Memory keeps collections as raw JSON in a map. It mirrors the Pebble
// backend byte-for-byte so tests exercise the same encode/decode path,
// including the corrupt-collection reset.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	serials map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string][]byte),
		serials: make(map[string]int64),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Get(tenantID, name string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[collectionKey(tenantID, name)]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		delete(m.data, collectionKey(tenantID, name))
		return false, nil
	}
	return true, nil
}

func (m *Memory) Put(tenantID, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[collectionKey(tenantID, name)] = data
	return nil
}

func (m *Memory) Delete(tenantID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, collectionKey(tenantID, name))
	return nil
}

func (m *Memory) NextSerial(tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serials[tenantID]++
	return m.serials[tenantID], nil
}

// PutRaw stores collection bytes verbatim. Tests use it to plant corrupt
// JSON.
func (m *Memory) PutRaw(tenantID, name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[collectionKey(tenantID, name)] = append([]byte(nil), data...)
}
