// Package chat 实现聚会群聊的核心服务层
// channel_broker.go
// 核心职责：单机模式下的消息代理实现
// 1. 维护本机在线连接 (sync.Map，无需手动加锁)
// 2. 上行信封经内存通道转交给 EnvelopeHandler
// 3. 管理连接的登录/登出事件
// 4. 不依赖外部消息队列，适合小规模或开发环境
package chat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/pkg/constants"
)

// ChannelBroker 单机消息代理
type ChannelBroker struct {
	// Clients 在线连接映射表，Key 为 meetingUuid_userId
	Clients sync.Map
	// Transmit 上行信封转发通道
	Transmit chan []byte
	// Login 连接登录通道
	Login chan *UserConn
	// Logout 连接登出通道
	Logout chan *UserConn

	participantRepo repository.ParticipantRepository
	handler         EnvelopeHandler
}

// NewChannelBroker 创建 ChannelBroker 实例（依赖注入）
func NewChannelBroker(participantRepo repository.ParticipantRepository) *ChannelBroker {
	return &ChannelBroker{
		Transmit:        make(chan []byte, constants.CHANNEL_SIZE),
		Login:           make(chan *UserConn, constants.CHANNEL_SIZE),
		Logout:          make(chan *UserConn, constants.CHANNEL_SIZE),
		participantRepo: participantRepo,
	}
}

// SetHandler 注入上行信封处理器
func (b *ChannelBroker) SetHandler(handler EnvelopeHandler) {
	b.handler = handler
}

// Start 启动主循环
// 1. 消息消费：上行信封转交给 handler
// 2. 连接管理：处理登录/登出事件，维护 Clients 映射表
func (b *ChannelBroker) Start() {
	for {
		select {
		case client, ok := <-b.Login:
			if !ok {
				return
			}
			if client == nil {
				continue
			}
			b.Clients.Store(client.ConnKey(), client)
			zap.L().Debug(fmt.Sprintf("用户%s加入聚会%s的聊天", client.UserId, client.MeetingUuid))

		case client, ok := <-b.Logout:
			if !ok {
				return
			}
			if client == nil {
				continue
			}
			b.Clients.Delete(client.ConnKey())
			zap.L().Info(fmt.Sprintf("用户%s离开聚会%s的聊天", client.UserId, client.MeetingUuid))

		case data, ok := <-b.Transmit:
			if !ok {
				return
			}
			if b.handler != nil {
				b.handler.HandleEnvelope(data)
			}
		}
	}
}

// Publish 实现 MessageBroker 接口：发布上行信封到通道
// 单机模式只有一个消费循环，分区键用不上；
// 通道满时丢弃并返回错误，由调用方决定如何反馈客户端
func (b *ChannelBroker) Publish(ctx context.Context, meetingUuid string, msg []byte) error {
	select {
	case b.Transmit <- msg:
		return nil
	default:
		return fmt.Errorf("transmit channel full")
	}
}

// RegisterClient 实现 MessageBroker 接口：注册连接
func (b *ChannelBroker) RegisterClient(client *UserConn) {
	b.Login <- client
}

// UnregisterClient 实现 MessageBroker 接口：注销连接
func (b *ChannelBroker) UnregisterClient(client *UserConn) {
	b.Logout <- client
}

// GetClient 实现 MessageBroker 接口：获取连接
func (b *ChannelBroker) GetClient(connKey string) *UserConn {
	value, ok := b.Clients.Load(connKey)
	if !ok {
		return nil
	}
	return value.(*UserConn)
}

// BroadcastToMeeting 向聚会的本机在线参与者直接广播临时载荷
func (b *ChannelBroker) BroadcastToMeeting(meetingUuid, excludeUserId string, payload []byte) {
	participants, err := b.participantRepo.FindActiveByMeeting(meetingUuid)
	if err != nil {
		zap.L().Error("广播查询参与者失败", zap.Error(err), zap.String("meeting_id", meetingUuid))
		return
	}
	for _, p := range participants {
		if p.UserId == excludeUserId {
			continue
		}
		if value, ok := b.Clients.Load(connKey(meetingUuid, p.UserId)); ok {
			value.(*UserConn).Send(payload)
		}
	}
}

// Close 关闭通道资源
func (b *ChannelBroker) Close() error {
	close(b.Login)
	close(b.Logout)
	close(b.Transmit)
	return nil
}

// 确保 ChannelBroker 实现了 MessageBroker 接口
var _ MessageBroker = (*ChannelBroker)(nil)
