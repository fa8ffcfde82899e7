package db

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/arbitroy/stockflow/backend/internal/logging"
)

// MemoryStore is an in-process Store. It keeps encoded bytes so values
// round-trip through JSON exactly as they do in SQLiteStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Save implements Store.
func (m *MemoryStore) Save(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Error("store: failed to encode value", err, map[string]interface{}{"key": key})
		return
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
}

// SaveRaw writes bytes without encoding them.
func (m *MemoryStore) SaveRaw(key string, data []byte) {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Load implements Store.
func (m *MemoryStore) Load(key string, out interface{}) bool {
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logging.Warn("store: corrupt value treated as absent", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Has implements Store.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// Clear implements Store.
func (m *MemoryStore) Clear(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// Keys implements Store.
func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
