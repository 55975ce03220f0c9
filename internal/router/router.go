// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"github.com/gin-gonic/gin"

	"meetup_hub_server/internal/handler"
	"meetup_hub_server/internal/infrastructure/middleware"
)

// Router 路由管理器，持有 Handler 聚合实例
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用
// 全部业务路由都要求携带身份令牌（外部身份服务签发）
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	authed := r.Group("/", middleware.JWTAuth())

	rt.RegisterMeetingRoutes(authed)      // 聚会路由
	rt.RegisterRosterRoutes(authed)       // 名单路由
	rt.RegisterMessageRoutes(authed)      // 消息路由
	rt.RegisterNotificationRoutes(authed) // 通知路由
	rt.RegisterWebSocketRoutes(authed)    // WebSocket 路由
	rt.RegisterSchedulerRoutes(authed)    // 调度维护路由
}
