// Package handler 提供 HTTP 请求处理器
// 本文件处理通知相关的 API 请求
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/service"
)

// NotificationHandler 通知请求处理器
type NotificationHandler struct {
	notifySvc service.NotifyService
}

// NewNotificationHandler 创建通知处理器实例
func NewNotificationHandler(notifySvc service.NotifyService) *NotificationHandler {
	return &NotificationHandler{notifySvc: notifySvc}
}

// List 查询通知列表和未读数
// GET /notification/list?limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	data, err := h.notifySvc.List(c.GetString("user_id"), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkRead 标记单条通知已读
// POST /notification/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	err := h.notifySvc.MarkRead(c.GetString("user_id"), c.Param("notification_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// MarkAllRead 标记全部通知已读
// POST /notification/readAll
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifySvc.MarkAllRead(c.GetString("user_id")); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Delete 删除单条通知
// POST /notification/:notification_id/delete
func (h *NotificationHandler) Delete(c *gin.Context) {
	err := h.notifySvc.Delete(c.GetString("user_id"), c.Param("notification_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
