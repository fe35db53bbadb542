package unifeed

import "sync"

// Storage keys shared by every context on the same medium. The five keys
// are independently readable and writable; values are JSON.
const (
	KeyPosts        = "unifeed_posts_v1"
	KeyTags         = "unifeed_tags_v1"
	KeyFollow       = "unifeed_follow_v1"
	KeyLastSeen     = "_unifeed_last_seen"
	KeyLastModified = "_unifeed_last_update"
)

// KeyValue is the persistent storage medium shared between contexts. Get
// returns ErrKeyNotFound for a missing key. Implementations live in
// bboltstore and sqlitestore; MemoryKV backs tests and the degraded
// ephemeral mode.
type KeyValue interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// MemoryKV is an in-process KeyValue. It is safe for concurrent use so a
// single instance can stand in for the shared medium between several
// simulated contexts.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}
