// Package chat 实现聚会群聊的核心服务层
// kafka_broker.go
// 核心职责：分布式模式下的消息代理实现
// 1. 上行信封写入 Kafka，由消费循环读出后转交 EnvelopeHandler
// 2. 维护本机在线连接，多节点部署时各节点只负责推送本机连接
// 3. 节点间的增量补投由轮询对账器兜底
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "meetup_hub_server/internal/config"
	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/pkg/constants"
)

// KafkaBroker 基于 Kafka 的消息代理
type KafkaBroker struct {
	// Clients 本机在线连接映射表，Key 为 meetingUuid_userId
	Clients sync.Map
	// Login 连接登录通道
	Login chan *UserConn
	// Logout 连接登出通道
	Logout chan *UserConn

	Producer *kafka.Writer
	Consumer *kafka.Reader

	participantRepo repository.ParticipantRepository
	handler         EnvelopeHandler
}

// NewKafkaBroker 创建 KafkaBroker 实例并初始化 Kafka 连接
func NewKafkaBroker(participantRepo repository.ParticipantRepository) *KafkaBroker {
	kafkaConfig := myconfig.GetConfig().KafkaConfig
	producer := &kafka.Writer{
		Addr:                   kafka.TCP(kafkaConfig.HostPort),
		Topic:                  kafkaConfig.ChatTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           kafkaConfig.Timeout * time.Second,
		RequiredAcks:           kafka.RequireNone,
		AllowAutoTopicCreation: false,
	}
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{kafkaConfig.HostPort},
		Topic:          kafkaConfig.ChatTopic,
		CommitInterval: kafkaConfig.Timeout * time.Second,
		GroupID:        "meetup_chat",
		StartOffset:    kafka.LastOffset,
	})

	return &KafkaBroker{
		Login:           make(chan *UserConn, constants.CHANNEL_SIZE),
		Logout:          make(chan *UserConn, constants.CHANNEL_SIZE),
		Producer:        producer,
		Consumer:        consumer,
		participantRepo: participantRepo,
	}
}

// SetHandler 注入上行信封处理器
func (b *KafkaBroker) SetHandler(handler EnvelopeHandler) {
	b.handler = handler
}

// Start 启动主循环
// 消费协程从 Kafka 拉取上行信封转交 handler，主循环处理登录/登出事件
func (b *KafkaBroker) Start() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("kafka broker panic: %v", r))
		}
		close(b.Login)
		close(b.Logout)
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error(fmt.Sprintf("kafka consumer panic: %v", r))
			}
		}()
		for {
			kafkaMessage, err := b.Consumer.ReadMessage(context.Background())
			if err != nil {
				zap.L().Error(err.Error())
				continue
			}
			zap.L().Debug(fmt.Sprintf("topic=%s, partition=%d, offset=%d",
				kafkaMessage.Topic, kafkaMessage.Partition, kafkaMessage.Offset))
			if b.handler != nil {
				b.handler.HandleEnvelope(kafkaMessage.Value)
			}
		}
	}()

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
		}
	}
}

// Publish 实现 MessageBroker 接口：上行信封写入 Kafka
// 以聚会 uuid 作为消息键，同一聚会落在同一分区，序号分配不会乱序
func (b *KafkaBroker) Publish(ctx context.Context, meetingUuid string, msg []byte) error {
	return b.Producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(meetingUuid),
		Value: msg,
	})
}

// RegisterClient 实现 MessageBroker 接口：注册连接
func (b *KafkaBroker) RegisterClient(client *UserConn) {
	b.Login <- client
}

// UnregisterClient 实现 MessageBroker 接口：注销连接
func (b *KafkaBroker) UnregisterClient(client *UserConn) {
	b.Logout <- client
}

// GetClient 实现 MessageBroker 接口：获取连接
func (b *KafkaBroker) GetClient(connKey string) *UserConn {
	value, ok := b.Clients.Load(connKey)
	if !ok {
		return nil
	}
	return value.(*UserConn)
}

// BroadcastToMeeting 向聚会的本机在线参与者直接广播临时载荷
func (b *KafkaBroker) BroadcastToMeeting(meetingUuid, excludeUserId string, payload []byte) {
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

// Close 关闭 Kafka 资源，生产端和消费端都要关，首个错误向上返回
func (b *KafkaBroker) Close() error {
	producerErr := b.Producer.Close()
	consumerErr := b.Consumer.Close()
	if producerErr != nil {
		return producerErr
	}
	return consumerErr
}

// 确保 KafkaBroker 实现了 MessageBroker 接口
var _ MessageBroker = (*KafkaBroker)(nil)
