// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接相关的 API 请求
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meetup_hub_server/internal/service"
	"meetup_hub_server/internal/service/chat"
	"meetup_hub_server/pkg/errorx"
)

// WsHandler WebSocket 请求处理器
// 认证走 JWT 中间件（token 放在查询参数里），身份从上下文取
type WsHandler struct {
	svc *service.Services
}

// NewWsHandler 创建 WebSocket 处理器实例
func NewWsHandler(svc *service.Services) *WsHandler {
	return &WsHandler{svc: svc}
}

// Connect 建立聚会聊天的 WebSocket 连接
// GET /wss?meeting_id=M123456789&last_seq=0&token=xxx
// 查询参数:
//   - meeting_id: 聚会 UUID
//   - last_seq: 客户端已持有的最大消息序号，连接后补投其后的消息
//
// 功能:
//   - 校验连接者是聚会的有效成员
//   - 升级为 WebSocket 并注册到投递对账器
func (h *WsHandler) Connect(c *gin.Context) {
	meetingId := c.Query("meeting_id")
	if meetingId == "" {
		zap.L().Error("meeting_id获取失败")
		c.JSON(http.StatusOK, gin.H{
			"code": errorx.CodeInvalidParam,
			"msg":  "meeting_id获取失败",
		})
		return
	}
	userId := c.GetString("user_id")

	// 只有有效成员能进入聊天通道
	if _, err := h.svc.Roster.ListParticipants(meetingId, userId, c.GetBool("is_admin")); err != nil {
		HandleError(c, err)
		return
	}

	lastSeq, err := strconv.ParseInt(c.DefaultQuery("last_seq", "0"), 10, 64)
	if err != nil || lastSeq < 0 {
		lastSeq = 0
	}

	chat.NewClientInit(c, meetingId, userId, lastSeq, h.svc.Broker, h.svc.Reconciler)
}

// Disconnect 主动断开 WebSocket 连接
// POST /ws/logout?meeting_id=M123456789
func (h *WsHandler) Disconnect(c *gin.Context) {
	meetingId := c.Query("meeting_id")
	if meetingId == "" {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "meeting_id获取失败"))
		return
	}
	if err := chat.ClientLogout(meetingId, c.GetString("user_id"), h.svc.Broker, h.svc.Reconciler); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
