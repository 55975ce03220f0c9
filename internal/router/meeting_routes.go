// Package router 提供 HTTP 路由注册
// 本文件定义聚会生命周期相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMeetingRoutes 注册聚会相关路由（需要认证）
func (rt *Router) RegisterMeetingRoutes(rg *gin.RouterGroup) {
	meetingGroup := rg.Group("/meeting")
	{
		meetingGroup.POST("/create", rt.handlers.Meeting.Create)                  // 创建聚会或周期模板
		meetingGroup.GET("/mine", rt.handlers.Meeting.ListMine)                   // 我发起的聚会
		meetingGroup.GET("/:meeting_id", rt.handlers.Meeting.GetDetail)           // 聚会详情
		meetingGroup.POST("/:meeting_id/update", rt.handlers.Meeting.Update)      // 修改详情
		meetingGroup.POST("/:meeting_id/confirm", rt.handlers.Meeting.Confirm)    // 成团
		meetingGroup.POST("/:meeting_id/unconfirm", rt.handlers.Meeting.Unconfirm) // 撤销成团
		meetingGroup.POST("/:meeting_id/cancel", rt.handlers.Meeting.Cancel)      // 取消聚会
		meetingGroup.POST("/:meeting_id/delete", rt.handlers.Meeting.Delete)      // 解散聚会
	}
}
