package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryKV is a process-local KV. With a positive maxAge entries expire
// that long after they were written.
type MemoryKV struct {
	cache   *ttlcache.Cache[string, string]
	janitor bool
	stop    sync.Once
}

// NewMemoryKV returns an empty MemoryKV. Call Close to stop the expiry
// janitor when maxAge > 0.
func NewMemoryKV(maxAge time.Duration) *MemoryKV {
	ttl := ttlcache.NoTTL
	if maxAge > 0 {
		ttl = maxAge
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	kv := &MemoryKV{cache: cache, janitor: maxAge > 0}
	if kv.janitor {
		go cache.Start()
	}
	return kv
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	item := m.cache.Get(key)
	if item == nil || item.IsExpired() {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value, ttlcache.DefaultTTL)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Len reports the number of stored keys.
func (m *MemoryKV) Len() int {
	return m.cache.Len()
}

// Close stops the expiry janitor. It is safe to call more than once.
func (m *MemoryKV) Close() {
	if !m.janitor {
		return
	}
	m.stop.Do(m.cache.Stop)
}
