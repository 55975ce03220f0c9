// Package router 提供 HTTP 路由注册
// 本文件定义通知相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterNotificationRoutes 注册通知相关路由（需要认证）
func (rt *Router) RegisterNotificationRoutes(rg *gin.RouterGroup) {
	notificationGroup := rg.Group("/notification")
	{
		notificationGroup.GET("/list", rt.handlers.Notification.List)                       // 通知列表和未读数
		notificationGroup.POST("/readAll", rt.handlers.Notification.MarkAllRead)            // 全部已读
		notificationGroup.POST("/:notification_id/read", rt.handlers.Notification.MarkRead) // 单条已读
		notificationGroup.POST("/:notification_id/delete", rt.handlers.Notification.Delete) // 删除
	}
}
