// Package handler 提供 HTTP 请求处理器
// 本文件处理调度触发的维护类 API 请求
// 自动取消和模板物化由外部定时任务按节奏调用
package handler

import (
	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/service"
)

// SchedulerHandler 调度请求处理器
type SchedulerHandler struct {
	meetingSvc service.MeetingService
}

// NewSchedulerHandler 创建调度处理器实例
func NewSchedulerHandler(meetingSvc service.MeetingService) *SchedulerHandler {
	return &SchedulerHandler{meetingSvc: meetingSvc}
}

// AutoCancel 开场前窗口内人数不足则自动取消
// POST /scheduler/meeting/:meeting_id/autoCancel
// 响应: {"cancelled": bool}
func (h *SchedulerHandler) AutoCancel(c *gin.Context) {
	cancelled, err := h.meetingSvc.AutoCancelIfUndersubscribed(c.Param("meeting_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"cancelled": cancelled})
}

// Materialize 把周期模板物化成某一 ISO 周的场次
// POST /scheduler/template/:meeting_id/materialize
// 请求体: request.MaterializeInstanceRequest
// 响应: respond.MeetingRespond（已存在则返回已有场次）
func (h *SchedulerHandler) Materialize(c *gin.Context) {
	var req request.MaterializeInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.meetingSvc.MaterializeInstance(c.Param("meeting_id"),
		c.GetString("user_id"), c.GetBool("is_admin"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
