package storage

import "sync"

// MemoryStore is an in-process Store. It is the stock ephemeral store and
// the fallback when a durable store is unavailable.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string

	// failNext forces the next operation to fail. Test hook for exercising
	// the degraded paths without a faulty backing store.
	failNext error
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key, reporting presence.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return "", false, &Error{Code: ErrCodeRead, Key: key, Err: err}
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return &Error{Code: ErrCodeWrite, Key: key, Err: err}
	}
	m.values[key] = value
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return &Error{Code: ErrCodeWrite, Key: key, Err: err}
	}
	delete(m.values, key)
	return nil
}

// FailNext makes the next single operation return err.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryStore) takeErr() error {
	err := m.failNext
	m.failNext = nil
	return err
}
