// Package chat 实现聚会群聊的核心服务层
// ws_gateway.go
// 核心职责：WebSocket 连接生命周期管理
// 1. 建立 WebSocket 连接 (Upgrade)
// 2. 封装 UserConn 对象，管理读写协程 (Read/Write Loop)
// 3. 上行信封按连接身份盖章后经 MessageBroker 传输
// 4. 下行投递挂接到轮询对账器，实时路径和轮询路径共用去重
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/service/fallback"
	"meetup_hub_server/pkg/constants"
)

// UserConn 表示一个参与者在某个聚会聊天室的 WebSocket 连接
type UserConn struct {
	Conn        *websocket.Conn
	MeetingUuid string
	UserId      string
	// SendBack 下行载荷通道，写协程消费后发给前端
	SendBack chan []byte

	closeOnce sync.Once
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	// 前端与后端不同源，放行跨域握手
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func connKey(meetingUuid, userId string) string {
	return meetingUuid + "_" + userId
}

// ConnKey 连接在映射表中的键
func (c *UserConn) ConnKey() string {
	return connKey(c.MeetingUuid, c.UserId)
}

// Send 非阻塞投递下行载荷
// 通道满时丢弃，落库消息由轮询对账补投，临时信令允许丢失
func (c *UserConn) Send(payload []byte) {
	select {
	case c.SendBack <- payload:
	default:
		zap.L().Warn("下行通道已满，载荷被丢弃",
			zap.String("meeting_id", c.MeetingUuid), zap.String("user_id", c.UserId))
	}
}

// closeSendBack 幂等关闭下行通道
func (c *UserConn) closeSendBack() {
	c.closeOnce.Do(func() {
		close(c.SendBack)
	})
}

// Read 读协程：读取上行信封，按连接身份盖章后发布给 Broker
// 连接断开时负责注销和资源回收
func (c *UserConn) Read(broker MessageBroker, reconciler *fallback.Reconciler) {
	zap.L().Info("ws read goroutine start")
	defer func() {
		broker.UnregisterClient(c)
		reconciler.Untrack(c.MeetingUuid, c.UserId)
		c.closeSendBack()
		_ = c.Conn.Close()
	}()

	for {
		_, jsonMessage, err := c.Conn.ReadMessage()
		if err != nil {
			zap.L().Info("ws连接断开", zap.Error(err), zap.String("user_id", c.UserId))
			return
		}

		var envelope request.ChatEnvelopeRequest
		if err := json.Unmarshal(jsonMessage, &envelope); err != nil {
			zap.L().Error("上行信封解析失败", zap.Error(err))
			continue
		}
		// 身份以连接为准，不信任客户端填写的值
		envelope.MeetingId = c.MeetingUuid
		envelope.SenderId = c.UserId
		stamped, err := json.Marshal(envelope)
		if err != nil {
			zap.L().Error(err.Error())
			continue
		}

		if err := broker.Publish(context.Background(), c.MeetingUuid, stamped); err != nil {
			zap.L().Error("上行信封发布失败", zap.Error(err))
			if err := c.Conn.WriteMessage(websocket.TextMessage, []byte("消息发送失败，请稍后重试")); err != nil {
				zap.L().Error(err.Error())
			}
		}
	}
}

// Write 写协程：从 SendBack 通道读取载荷并发送给前端
func (c *UserConn) Write() {
	zap.L().Info("ws write goroutine start")
	for payload := range c.SendBack {
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			zap.L().Error(err.Error())
			return
		}
	}
}

// NewClientInit 建立 WebSocket 连接并挂接投递链路
// lastSeq 为客户端已确认收到的最大序号，断线重连时由对账器补齐缺口
func NewClientInit(c *gin.Context, meetingUuid, userId string, lastSeq int64,
	broker MessageBroker, reconciler *fallback.Reconciler) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	client := &UserConn{
		Conn:        conn,
		MeetingUuid: meetingUuid,
		UserId:      userId,
		SendBack:    make(chan []byte, constants.CHANNEL_SIZE),
	}
	broker.RegisterClient(client)
	reconciler.Track(meetingUuid, userId, lastSeq, client.Send)
	go client.Read(broker, reconciler)
	go client.Write()
	zap.L().Info("ws连接成功",
		zap.String("meeting_id", meetingUuid), zap.String("user_id", userId))
}

// ClientLogout 主动登出指定连接
func ClientLogout(meetingUuid, userId string, broker MessageBroker, reconciler *fallback.Reconciler) error {
	client := broker.GetClient(connKey(meetingUuid, userId))
	if client != nil {
		broker.UnregisterClient(client)
		reconciler.Untrack(meetingUuid, userId)
		client.closeSendBack()
		if err := client.Conn.Close(); err != nil {
			zap.L().Error(err.Error())
			return err
		}
	}
	return nil
}
