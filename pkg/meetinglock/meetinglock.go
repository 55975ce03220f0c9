// Package meetinglock 提供以聚会为粒度的互斥锁注册表
// 同一聚会上的变更（报名/退出/成团/发消息）必须串行执行，防止并发报名击穿容量上限；
// 不同聚会之间完全独立，不存在全局锁
package meetinglock

import "sync"

// Registry 按聚会 uuid 维护互斥锁
// sync.Map 中的锁一旦创建不回收：聚会数量有限，常驻内存代价可以接受
type Registry struct {
	locks sync.Map // meetingUuid -> *sync.Mutex
}

// NewRegistry 创建锁注册表
func NewRegistry() *Registry {
	return &Registry{}
}

// Lock 获取指定聚会的互斥锁并加锁，返回解锁函数
// 用法: defer locks.Lock(meetingId)()
func (r *Registry) Lock(meetingUuid string) func() {
	v, _ := r.locks.LoadOrStore(meetingUuid, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
