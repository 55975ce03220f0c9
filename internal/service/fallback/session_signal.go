// Package fallback 实现投递兜底链路
// session_signal.go
// 核心职责：跨会话信令总线
// 用户在某个会话产生写入后，向该用户的其余会话广播一个轻量信号，
// 收到信号的会话立即对账拉取，而不必等下一个轮询周期
package fallback

import (
	"context"
	"sync"

	myredis "meetup_hub_server/internal/dao/redis"
)

// SignalBus 跨会话信令总线接口
// 支持多种实现：Redis Pub/Sub（多节点）、内存（单机/测试）
type SignalBus interface {
	// Signal 向用户的全部订阅会话广播信号
	Signal(ctx context.Context, userId string, payload string) error
	// Subscribe 订阅用户的信号，返回消息通道和取消函数
	Subscribe(ctx context.Context, userId string) (<-chan string, func(), error)
}

// 信令频道前缀，完整频道名为 session_signal_<userId>
const signalChannelPrefix = "session_signal_"

// redisSignalBus 基于 Redis Pub/Sub 的实现，支持多节点部署
type redisSignalBus struct {
	cache myredis.CacheService
}

// NewRedisSignalBus 创建 Redis 信令总线
func NewRedisSignalBus(cacheService myredis.CacheService) SignalBus {
	return &redisSignalBus{cache: cacheService}
}

func (b *redisSignalBus) Signal(ctx context.Context, userId string, payload string) error {
	return b.cache.Publish(ctx, signalChannelPrefix+userId, payload)
}

func (b *redisSignalBus) Subscribe(ctx context.Context, userId string) (<-chan string, func(), error) {
	return b.cache.Subscribe(ctx, signalChannelPrefix+userId)
}

// memorySignalBus 进程内实现，单机模式和测试使用
type memorySignalBus struct {
	mu   sync.RWMutex
	subs map[string][]chan string
}

// NewMemorySignalBus 创建内存信令总线
func NewMemorySignalBus() SignalBus {
	return &memorySignalBus{subs: make(map[string][]chan string)}
}

func (b *memorySignalBus) Signal(ctx context.Context, userId string, payload string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[userId] {
		// 订阅方通道满时丢弃信号，轮询兜底保证最终送达
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memorySignalBus) Subscribe(ctx context.Context, userId string) (<-chan string, func(), error) {
	ch := make(chan string, 16)
	b.mu.Lock()
	b.subs[userId] = append(b.subs[userId], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		channels := b.subs[userId]
		for i, c := range channels {
			if c == ch {
				b.subs[userId] = append(channels[:i], channels[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[userId]) == 0 {
			delete(b.subs, userId)
		}
	}
	return ch, cancel, nil
}

// 确保两种实现均满足 SignalBus 接口
var (
	_ SignalBus = (*redisSignalBus)(nil)
	_ SignalBus = (*memorySignalBus)(nil)
)
