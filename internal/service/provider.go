// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"time"

	"meetup_hub_server/internal/config"
	"meetup_hub_server/internal/dao/mysql/repository"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/infrastructure/push"
	"meetup_hub_server/internal/service/chat"
	"meetup_hub_server/internal/service/fallback"
	"meetup_hub_server/internal/service/meeting"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/internal/service/roster"
	"meetup_hub_server/pkg/constants"
	"meetup_hub_server/pkg/meetinglock"
)

// Services 聚合所有 Service 实例
// Handler 层通过 service.Svc 访问各个 Service；
// Broker 和 Reconciler 另行暴露给 WebSocket 网关和 main 的后台启动
type Services struct {
	Meeting MeetingService // 聚会 Service
	Roster  RosterService  // 名单 Service
	Chat    ChatService    // 聊天 Service
	Notify  NotifyService  // 通知 Service

	Broker     chat.MessageBroker   // 上行消息转发器（channel 或 kafka）
	Reconciler *fallback.Reconciler // 投递对账器，实时路径与轮询兜底共用
	Bus        fallback.SignalBus   // 跨会话信令总线
}

// NewServices 创建并注入所有 Service 实例
// 依赖注入流程：
//  1. 接收 Repository 聚合、缓存服务、推送服务和配置
//  2. 按 messageMode 选择 Broker 与信令总线实现
//  3. 创建各个 Service 实例并把聊天 Service 挂为 Broker 的信封处理器
func NewServices(repos *repository.Repositories, cacheService myredis.AsyncCacheService,
	pusher push.PushService, conf *config.Config) *Services {
	locks := meetinglock.NewRegistry()
	dispatcher := notify.NewDispatcher(repos, cacheService, pusher)

	// 单机 channel 模式下进程内信令即可；kafka 模式意味着多节点部署，
	// 会话可能连在别的节点上，信令必须走 redis 广播
	var bus fallback.SignalBus
	var broker chat.MessageBroker
	if conf.KafkaConfig.MessageMode == "kafka" {
		bus = fallback.NewRedisSignalBus(cacheService)
		broker = chat.NewKafkaBroker(repos.Participant)
	} else {
		bus = fallback.NewMemorySignalBus()
		broker = chat.NewChannelBroker(repos.Participant)
	}

	interval := time.Duration(conf.FallbackConfig.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = constants.DEFAULT_POLL_PERIOD
	}
	reconciler := fallback.NewReconciler(repos.Message, bus,
		chat.NewMessageRenderer(repos.Participant), interval)

	chatSvc := chat.NewChatService(repos, cacheService, broker, reconciler, bus,
		locks, dispatcher, conf.FallbackConfig.ConflictRetries)
	broker.SetHandler(chatSvc)

	return &Services{
		Meeting:    meeting.NewMeetingService(repos, cacheService, locks, dispatcher, conf.MeetingConfig),
		Roster:     roster.NewRosterService(repos, cacheService, locks, dispatcher),
		Chat:       chatSvc,
		Notify:     dispatcher,
		Broker:     broker,
		Reconciler: reconciler,
		Bus:        bus,
	}
}

// Svc 全局 Services 实例
// Handler 层通过 service.Svc.Meeting.GetDetail() 等方式调用
var Svc *Services

// InitServices 初始化全局 Services 实例
// 应在 main.go 中调用，在 Repository、Redis 和推送服务初始化之后
func InitServices(repos *repository.Repositories, cacheService myredis.AsyncCacheService,
	pusher push.PushService, conf *config.Config) {
	Svc = NewServices(repos, cacheService, pusher, conf)
}
