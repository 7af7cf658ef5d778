package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type item struct {
	value      []byte
	expiration int64
}

// Memory is an in-process Cache. A janitor goroutine evicts expired items
// until Close is called.
type Memory struct {
	items map[string]item
	mu    sync.RWMutex
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemory(cleanupInterval time.Duration) *Memory {
	m := &Memory{
		items: make(map[string]item),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go m.cleanupExpired(cleanupInterval)
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, found := m.items[key]
	if !found || m.now().UnixNano() > it.expiration {
		return nil, ErrCacheMiss
	}
	return it.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = item{
		value:      value,
		expiration: m.now().Add(ttl).UnixNano(),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evict()
		}
	}
}

func (m *Memory) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixNano()
	for key, it := range m.items {
		if now > it.expiration {
			delete(m.items, key)
		}
	}
}
