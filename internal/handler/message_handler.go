// Package handler 提供 HTTP 请求处理器
// 本文件处理群聊消息相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/service"
)

// MessageHandler 消息请求处理器
type MessageHandler struct {
	chatSvc service.ChatService
}

// NewMessageHandler 创建消息处理器实例
func NewMessageHandler(chatSvc service.ChatService) *MessageHandler {
	return &MessageHandler{chatSvc: chatSvc}
}

// Post 通过 HTTP 发布消息（WebSocket 之外的发送通道）
// POST /meeting/:meeting_id/message
// 请求体: request.PostMessageRequest
// 响应: respond.MessageRespond（含分配的序号）
func (h *MessageHandler) Post(c *gin.Context) {
	var req request.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.Post(c.Param("meeting_id"), c.GetString("user_id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetMessageList 按序号增量拉取消息
// GET /meeting/:meeting_id/message/list?after=0&limit=50
// after 为客户端已持有的最大序号，返回其后的消息
func (h *MessageHandler) GetMessageList(c *gin.Context) {
	var req request.GetMessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.FetchSince(c.Param("meeting_id"),
		c.GetString("user_id"), req.After, req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkRead 提交已读回执
// POST /meeting/:meeting_id/message/read
// 请求体: request.MarkReadRequest
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	err := h.chatSvc.MarkRead(c.Param("meeting_id"),
		c.GetString("user_id"), req.UptoSequence)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Typing 上报输入中信号
// POST /meeting/:meeting_id/typing
func (h *MessageHandler) Typing(c *gin.Context) {
	if err := h.chatSvc.TypingSignal(c.Param("meeting_id"), c.GetString("user_id")); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// ListTyping 查询当前正在输入的成员标签
// GET /meeting/:meeting_id/typing
func (h *MessageHandler) ListTyping(c *gin.Context) {
	data, err := h.chatSvc.ListTyping(c.Param("meeting_id"), c.GetString("user_id"), c.GetBool("is_admin"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
