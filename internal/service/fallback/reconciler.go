// Package fallback 实现投递兜底链路
// reconciler.go
// 核心职责：轮询对账器
// 实时推送是尽力而为的，对账器以固定周期为每个在线会话拉取
// 其确认序号之后的增量消息并补投。固定周期即最坏投递延迟上界。
// 实时路径和轮询路径都经过 Session.deliver 按序号去重，
// 同一条消息不论从哪条路径到达都只投递一次。
package fallback

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/internal/model"
)

// MessageRenderer 将消息实体渲染为下发给客户端的载荷
type MessageRenderer func(message model.ChatMessage) ([]byte, error)

// Session 一个在线会话的投递状态
// lastSeq 是已向该会话投递的最大序号，序号不大于 lastSeq 的消息直接丢弃
type Session struct {
	MeetingUuid string
	UserId      string

	mu           sync.Mutex
	lastSeq      int64
	sink         func(payload []byte)
	cancelSignal func()
}

// deliver 按序号去重后投递，返回是否真正投递
func (s *Session) deliver(seq int64, payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.lastSeq {
		return false
	}
	s.lastSeq = seq
	s.sink(payload)
	return true
}

// LastSequence 当前已投递的最大序号
func (s *Session) LastSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// Reconciler 轮询对账器
type Reconciler struct {
	messageRepo repository.MessageRepository
	bus         SignalBus
	render      MessageRenderer
	interval    time.Duration

	sessions sync.Map // key: meetingUuid_userId -> *Session
}

// NewReconciler 构造函数，注入所有依赖
// interval 为轮询周期，同时也是实时通道完全失效时的最坏投递延迟
func NewReconciler(messageRepo repository.MessageRepository, bus SignalBus, render MessageRenderer, interval time.Duration) *Reconciler {
	return &Reconciler{
		messageRepo: messageRepo,
		bus:         bus,
		render:      render,
		interval:    interval,
	}
}

func sessionKey(meetingUuid, userId string) string {
	return meetingUuid + "_" + userId
}

// Track 注册一个在线会话
// lastSeq 为客户端已确认收到的最大序号，注册后立即做一次对账补齐缺口，
// 并订阅跨会话信令以便即时唤醒
func (r *Reconciler) Track(meetingUuid, userId string, lastSeq int64, sink func(payload []byte)) *Session {
	session := &Session{
		MeetingUuid: meetingUuid,
		UserId:      userId,
		lastSeq:     lastSeq,
		sink:        sink,
	}

	// 同一 (聚会, 用户) 的旧会话被新连接替换
	if old, loaded := r.sessions.Swap(sessionKey(meetingUuid, userId), session); loaded {
		if oldSession, ok := old.(*Session); ok && oldSession.cancelSignal != nil {
			oldSession.cancelSignal()
		}
	}

	if r.bus != nil {
		signals, cancel, err := r.bus.Subscribe(context.Background(), userId)
		if err != nil {
			zap.L().Warn("订阅跨会话信令失败，退化为纯轮询", zap.Error(err), zap.String("user_id", userId))
		} else {
			session.cancelSignal = cancel
			go func() {
				for range signals {
					r.sweepSession(session)
				}
			}()
		}
	}

	// 上线即补齐断线期间的缺口
	r.sweepSession(session)
	return session
}

// Untrack 注销会话
func (r *Reconciler) Untrack(meetingUuid, userId string) {
	if value, loaded := r.sessions.LoadAndDelete(sessionKey(meetingUuid, userId)); loaded {
		if session, ok := value.(*Session); ok && session.cancelSignal != nil {
			session.cancelSignal()
		}
	}
}

// Offer 实时推送路径入口
// 已经从轮询路径投递过的序号会被去重丢弃
func (r *Reconciler) Offer(meetingUuid, userId string, seq int64, payload []byte) bool {
	value, ok := r.sessions.Load(sessionKey(meetingUuid, userId))
	if !ok {
		return false
	}
	return value.(*Session).deliver(seq, payload)
}

// Start 启动轮询主循环，直至 ctx 取消
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	zap.L().Info("投递对账器启动", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("投递对账器退出")
			return
		case <-ticker.C:
			r.sweepAll()
		}
	}
}

// sweepAll 对全部会话做一轮对账
func (r *Reconciler) sweepAll() {
	r.sessions.Range(func(_, value any) bool {
		if session, ok := value.(*Session); ok {
			r.sweepSession(session)
		}
		return true
	})
}

// sweepSession 拉取会话确认序号之后的增量并按序补投
func (r *Reconciler) sweepSession(session *Session) {
	messages, err := r.messageRepo.FindAfterSequence(session.MeetingUuid, session.LastSequence(), 0)
	if err != nil {
		zap.L().Error("对账拉取增量失败", zap.Error(err), zap.String("meeting_id", session.MeetingUuid))
		return
	}
	for i := range messages {
		payload, err := r.render(messages[i])
		if err != nil {
			zap.L().Error("渲染消息失败", zap.Error(err), zap.Int64("sequence", messages[i].Sequence))
			continue
		}
		session.deliver(messages[i].Sequence, payload)
	}
}
