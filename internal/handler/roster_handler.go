// Package handler 提供 HTTP 请求处理器
// 本文件处理聚会名单相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/service"
)

// RosterHandler 名单请求处理器
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建名单处理器实例
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// Join 报名聚会
// POST /meeting/:meeting_id/join
// 响应: respond.ParticipantRespond（含分配的匿名标签）
func (h *RosterHandler) Join(c *gin.Context) {
	data, err := h.rosterSvc.Join(c.Param("meeting_id"), c.GetString("user_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Leave 退出聚会
// POST /meeting/:meeting_id/leave
func (h *RosterHandler) Leave(c *gin.Context) {
	if err := h.rosterSvc.Leave(c.Param("meeting_id"), c.GetString("user_id")); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// ListParticipants 查询有效名单
// GET /meeting/:meeting_id/participants
func (h *RosterHandler) ListParticipants(c *gin.Context) {
	data, err := h.rosterSvc.ListParticipants(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkAttendance 出勤登记
// POST /meeting/:meeting_id/attendance
// 请求体: request.MarkAttendanceRequest
func (h *RosterHandler) MarkAttendance(c *gin.Context) {
	var req request.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	err := h.rosterSvc.MarkAttendance(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
