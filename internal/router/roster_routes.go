// Package router 提供 HTTP 路由注册
// 本文件定义聚会名单相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterRosterRoutes 注册名单相关路由（需要认证）
func (rt *Router) RegisterRosterRoutes(rg *gin.RouterGroup) {
	meetingGroup := rg.Group("/meeting")
	{
		meetingGroup.POST("/:meeting_id/join", rt.handlers.Roster.Join)                  // 报名
		meetingGroup.POST("/:meeting_id/leave", rt.handlers.Roster.Leave)                // 退出
		meetingGroup.GET("/:meeting_id/participants", rt.handlers.Roster.ListParticipants) // 有效名单
		meetingGroup.POST("/:meeting_id/attendance", rt.handlers.Roster.MarkAttendance)  // 出勤登记
	}
}
