// Package router 提供 HTTP 路由注册
// 本文件定义群聊消息相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册消息相关路由（需要认证）
// 包括消息发布、增量拉取兜底、已读回执和输入中信号
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	meetingGroup := rg.Group("/meeting")
	{
		meetingGroup.POST("/:meeting_id/message", rt.handlers.Message.Post)             // 发布消息
		meetingGroup.GET("/:meeting_id/message/list", rt.handlers.Message.GetMessageList) // 按序号增量拉取
		meetingGroup.POST("/:meeting_id/message/read", rt.handlers.Message.MarkRead)    // 已读回执
		meetingGroup.POST("/:meeting_id/typing", rt.handlers.Message.Typing)            // 上报输入中
		meetingGroup.GET("/:meeting_id/typing", rt.handlers.Message.ListTyping)         // 查询输入中成员
	}
}
