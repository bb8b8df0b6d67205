package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStorage keeps snapshots in process memory with a TTL. Snapshots do not
// survive a restart.
type MemoryStorage struct {
	cache *cache.Cache
}

func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStorage{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) (string, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return "", false, nil
	}
	payload, ok := v.(string)
	if !ok {
		return "", false, nil
	}
	return payload, true, nil
}

func (m *MemoryStorage) Save(_ context.Context, key, payload string) error {
	m.cache.SetDefault(key, payload)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}
