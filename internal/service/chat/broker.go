// Package chat 实现聚会群聊的核心服务层
// broker.go
// 核心职责：定义消息代理接口
// 抽象上行消息传输和客户端连接管理，支持 Kafka 和 Channel 两种实现
package chat

import "context"

// EnvelopeHandler 上行信封处理器
// 代理层只负责传输，解析和业务处理交给实现方（ChatService）
type EnvelopeHandler interface {
	HandleEnvelope(data []byte)
}

// MessageBroker 消息代理接口
// 支持多种实现：KafkaBroker（分布式）、ChannelBroker（单机）
type MessageBroker interface {
	// Publish 发布上行信封到消息队列/通道
	// meetingUuid 作为分区键，保证同一聚会的信封按序消费
	Publish(ctx context.Context, meetingUuid string, msg []byte) error
	// RegisterClient 注册客户端连接
	RegisterClient(client *UserConn)
	// UnregisterClient 注销客户端连接
	UnregisterClient(client *UserConn)
	// GetClient 获取指定连接（key 为 meetingUuid_userId）
	GetClient(connKey string) *UserConn
	// BroadcastToMeeting 向聚会的本机在线参与者直接广播临时载荷
	// 不经过对账去重，仅用于 typing 这类不落库的信令
	BroadcastToMeeting(meetingUuid, excludeUserId string, payload []byte)
	// SetHandler 注入上行信封处理器
	SetHandler(handler EnvelopeHandler)
	// Start 启动消费主循环
	Start()
	// Close 关闭代理资源
	Close() error
}
