// Package router 提供 HTTP 路由注册
// 本文件定义调度维护相关的路由，由外部定时任务调用
package router

import (
	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/infrastructure/middleware"
)

// RegisterSchedulerRoutes 注册调度维护路由（需要认证且为管理员）
// 外部定时任务以管理员令牌调用，普通用户不能触发别人聚会的维护操作
func (rt *Router) RegisterSchedulerRoutes(rg *gin.RouterGroup) {
	schedulerGroup := rg.Group("/scheduler", middleware.AdminOnly())
	{
		schedulerGroup.POST("/meeting/:meeting_id/autoCancel", rt.handlers.Scheduler.AutoCancel)   // 人数不足自动取消
		schedulerGroup.POST("/template/:meeting_id/materialize", rt.handlers.Scheduler.Materialize) // 模板物化
	}
}
