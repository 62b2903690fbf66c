// Package kvmap provides the local concurrent map a bucket owns. The
// store treats values as immutable, so reads hand out the stored
// instance without copying.
package kvmap

import (
	"sync"

	"github.com/tesserakv/tessera/internal/model"
)

// Map is a mutex-guarded key to value mapping
type Map struct {
	mu    sync.RWMutex
	items map[string]model.Value
}

// New creates an empty map
func New() *Map {
	return &Map{items: make(map[string]model.Value)}
}

// Get returns the value stored under key
func (m *Map) Get(key string) (model.Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// Put stores value under key, replacing any existing value
func (m *Map) Put(key string, value model.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

// Delete removes key and reports whether it was present
func (m *Map) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return false
	}
	delete(m.items, key)
	return true
}

// Has reports whether key is present
func (m *Map) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key]
	return ok
}

// Len returns the number of keys present
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Keys returns a point-in-time copy of the present keys, unordered
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}
