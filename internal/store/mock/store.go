package mock

import (
	"context"
	"sync"
	"time"

	"github.com/gib-ens/gasless-registrar/internal/store"
)

// Ensure MockStore implements store.Store.
var _ store.Store = (*MockStore)(nil)

// MockStore is an in-memory key-value store for testing. TTLs are recorded
// but not enforced unless the test advances Now.
type MockStore struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Time

	// Now lets tests control expiry evaluation. Defaults to time.Now.
	Now func() time.Time

	// Hook functions for injecting errors
	GetFunc         func(ctx context.Context, key string) ([]byte, error)
	SetFunc         func(ctx context.Context, key string, value []byte) error
	SetIfAbsentFunc func(ctx context.Context, key string, value []byte) (bool, error)
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Time),
		Now:    time.Now,
	}
}

func (m *MockStore) expired(key string) bool {
	deadline, ok := m.ttls[key]
	return ok && !m.Now().Before(deadline)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.values[key]
	if !ok || m.expired(key) {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	delete(m.ttls, key)
	return nil
}

func (m *MockStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if m.SetIfAbsentFunc != nil {
		return m.SetIfAbsentFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok && !m.expired(key) {
		return false, nil
	}
	m.values[key] = append([]byte(nil), value...)
	delete(m.ttls, key)
	return true, nil
}

func (m *MockStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		m.ttls[key] = m.Now().Add(ttl)
	}
	return nil
}

// Keys returns all live keys (for test assertions).
func (m *MockStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		if !m.expired(k) {
			keys = append(keys, k)
		}
	}
	return keys
}
