package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// Backend stores encoded cache payloads. Patterns use glob syntax ("*").
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

type memoryEntry struct {
	payload    []byte
	insertedAt time.Time
	ttl        time.Duration
}

// MemoryBackend keeps entries in process. Expired entries are dropped when
// they are next read; there is no background sweep.
type MemoryBackend struct {
	mu      sync.RWMutex
	clock   Clock
	entries map[string]memoryEntry
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend(clock Clock) *MemoryBackend {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryBackend{clock: clock, entries: make(map[string]memoryEntry)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if m.clock.Now().Sub(entry.insertedAt) >= entry.ttl {
		m.mu.Lock()
		// Another writer may have refreshed the entry meanwhile.
		if cur, still := m.entries[key]; still && cur.insertedAt.Equal(entry.insertedAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{payload: payload, insertedAt: m.clock.Now(), ttl: ttl}
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryBackend) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
