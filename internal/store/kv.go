package store

import (
	"context"
	"sync"
)

// Well-known keys for the two persisted state entries.
const (
	TasksKey    = "tasks"
	SettingsKey = "settings"
)

// KV is the minimal key-value persistence interface the task store
// depends on. A key that has never been written yields ok == false
// rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemKV is an in-memory KV used by tests and ephemeral daemon runs.
type MemKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemKV creates an empty in-memory key-value store.
func NewMemKV() *MemKV {
	return &MemKV{values: make(map[string][]byte)}
}

// Get returns the stored value for key, or ok == false if absent.
func (m *MemKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores value under key, overwriting any previous value.
func (m *MemKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}
