package cache

import "sync"

// Memo is a concurrency-safe memo table scoped to one run. Values live until
// the table is dropped; there is no expiry. Readers take the shared lock, so
// a table fully populated before fan-out serves workers without contention.
type Memo[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// NewMemo creates an empty memo table.
func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{data: make(map[string]V)}
}

// Get returns the cached value for key.
func (m *Memo[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Set stores value under key, replacing any previous entry.
func (m *Memo[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// GetOrCompute returns the cached value for key, computing and storing it on
// first use. Concurrent callers for the same key compute once; the compute
// function runs under the write lock, so it must not call back into the memo.
func (m *Memo[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	m.mu.RLock()
	if v, ok := m.data[key]; ok {
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	m.data[key] = v
	return v, nil
}

// Len reports how many entries the table holds.
func (m *Memo[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
