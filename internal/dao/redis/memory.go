// Package redis 提供缓存服务的具体实现
// 本文件实现纯内存版缓存，供单元测试和无 Redis 的本地开发使用
// SubmitTask 同步执行，测试中无需等待异步任务收敛
package redis

import (
	"context"
	"path"
	"sync"
	"time"

	"meetup_hub_server/pkg/errorx"
)

// MemoryCache CacheService 的内存实现
type MemoryCache struct {
	mu     sync.Mutex
	data   map[string]memoryEntry
	topics map[string][]chan string
}

type memoryEntry struct {
	value    string
	expireAt time.Time // 零值表示永不过期
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data:   make(map[string]memoryEntry),
		topics: make(map[string][]chan string),
	}
}

var _ AsyncCacheService = (*MemoryCache)(nil)

func (m *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expireAt = time.Now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

// get 取值并惰性清理过期键，调用方需持有锁
func (m *MemoryCache) get(key string) (string, bool) {
	entry, ok := m.data[key]
	if !ok {
		return "", false
	}
	if !entry.expireAt.IsZero() && time.Now().After(entry.expireAt) {
		delete(m.data, key)
		return "", false
	}
	return entry.value, true
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, _ := m.get(key)
	return value, nil
}

func (m *MemoryCache) GetOrError(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.get(key)
	if !ok {
		return "", errorx.Newf(errorx.CodeNotFound, "cache key %s not found", key)
	}
	return value, nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.get(key)
	return ok, nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *MemoryCache) Publish(ctx context.Context, channel string, payload string) error {
	m.mu.Lock()
	subs := append([]chan string(nil), m.topics[channel]...)
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
			// 订阅方消费不过来就丢弃，与 redis pub/sub 行为一致
		}
	}
	return nil
}

func (m *MemoryCache) Subscribe(ctx context.Context, channel string) (<-chan string, func(), error) {
	ch := make(chan string, 16)
	m.mu.Lock()
	m.topics[channel] = append(m.topics[channel], ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.topics[channel]
		for i, sub := range subs {
			if sub == ch {
				m.topics[channel] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel, nil
}

// SubmitTask 同步执行任务
func (m *MemoryCache) SubmitTask(action func()) {
	action()
}
