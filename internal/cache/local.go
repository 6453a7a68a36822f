package cache

import (
	"sync"
	"time"

	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// DefaultLocalCapacity bounds the process-local fallback map.
const DefaultLocalCapacity = 1000

// localMap is a bounded map with insertion-order (FIFO) eviction.
type localMap struct {
	mu       sync.Mutex
	entries  map[string]storage.CacheEntry
	order    []string
	capacity int
}

func newLocalMap(capacity int) *localMap {
	if capacity <= 0 {
		capacity = DefaultLocalCapacity
	}
	return &localMap{
		entries:  make(map[string]storage.CacheEntry),
		capacity: capacity,
	}
}

func (m *localMap) get(key string) (storage.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok
}

func (m *localMap) put(entry storage.CacheEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.Key]; !exists {
		for len(m.entries) >= m.capacity && len(m.order) > 0 {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, entry.Key)
	}
	m.entries[entry.Key] = entry
}

func (m *localMap) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *localMap) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *localMap) purge(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	removed := 0
	for _, k := range m.order {
		if m.entries[k].Expired(now) {
			delete(m.entries, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	m.order = kept
	return removed
}
