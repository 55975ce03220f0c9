// Package handler 提供 HTTP 请求处理器
// 本文件处理聚会相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/service"
)

// MeetingHandler 聚会请求处理器
// 通过构造函数注入 MeetingService，遵循依赖倒置原则
type MeetingHandler struct {
	meetingSvc service.MeetingService
}

// NewMeetingHandler 创建聚会处理器实例
func NewMeetingHandler(meetingSvc service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingSvc: meetingSvc}
}

// Create 创建聚会或周期模板
// POST /meeting/create
// 请求体: request.CreateMeetingRequest
// 响应: respond.MeetingRespond
func (h *MeetingHandler) Create(c *gin.Context) {
	var req request.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.meetingSvc.Create(c.GetString("user_id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetDetail 查询聚会详情
// GET /meeting/:meeting_id
func (h *MeetingHandler) GetDetail(c *gin.Context) {
	data, err := h.meetingSvc.GetDetail(c.Param("meeting_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListMine 查询当前用户发起的聚会和模板
// GET /meeting/mine
func (h *MeetingHandler) ListMine(c *gin.Context) {
	data, err := h.meetingSvc.ListByHost(c.GetString("user_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Update 修改聚会详情
// POST /meeting/:meeting_id/update
// 请求体: request.UpdateMeetingRequest
func (h *MeetingHandler) Update(c *gin.Context) {
	var req request.UpdateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	err := h.meetingSvc.UpdateDetails(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Confirm 成团
// POST /meeting/:meeting_id/confirm
func (h *MeetingHandler) Confirm(c *gin.Context) {
	err := h.meetingSvc.Confirm(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Unconfirm 撤销成团
// POST /meeting/:meeting_id/unconfirm
func (h *MeetingHandler) Unconfirm(c *gin.Context) {
	err := h.meetingSvc.Unconfirm(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Cancel 取消聚会
// POST /meeting/:meeting_id/cancel
func (h *MeetingHandler) Cancel(c *gin.Context) {
	err := h.meetingSvc.Cancel(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Delete 解散聚会
// POST /meeting/:meeting_id/delete
func (h *MeetingHandler) Delete(c *gin.Context) {
	err := h.meetingSvc.Delete(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
