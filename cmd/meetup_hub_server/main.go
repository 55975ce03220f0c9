package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"meetup_hub_server/internal/config"
	dao "meetup_hub_server/internal/dao/mysql"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/handler"
	"meetup_hub_server/internal/https_server"
	"meetup_hub_server/internal/infrastructure/logger"
	"meetup_hub_server/internal/infrastructure/push"
	"meetup_hub_server/internal/service"
	"meetup_hub_server/pkg/util/jwt"
	"meetup_hub_server/pkg/util/snowflake"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, "dev"); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化雪花算法节点（消息 ID 依赖它）
	snowflake.Init(conf.SnowflakeConfig.MachineID)

	// 4. 初始化数据库
	repos := dao.Init()
	zap.L().Info("数据库初始化成功")

	// 5. 初始化 Redis
	myredis.Init()
	cacheService := myredis.GetCacheService()
	zap.L().Info("Redis 初始化成功")

	// 6. 初始化 JWT（令牌由外部身份服务签发，这里只做校验）
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	zap.L().Info("JWT 初始化成功")

	// 7. 初始化推送服务（未配置 AK 时自动降级为本地日志推送）
	pusher, err := push.Init(cacheService)
	if err != nil {
		zap.L().Fatal("推送服务初始化失败", zap.Error(err))
	}
	zap.L().Info("推送服务初始化成功")

	// 8. 初始化 Service 层（依赖注入）
	service.InitServices(repos, cacheService, pusher, conf)
	zap.L().Info("Service 层初始化成功")

	// 9. 初始化参数校验翻译器
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("翻译器初始化失败", zap.Error(err))
	}

	// 10. 启动消息转发器和投递对账器
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.Svc.Broker.Start()
	go service.Svc.Reconciler.Start(ctx)
	zap.L().Info("消息转发器和投递对账器已启动",
		zap.String("mode", conf.KafkaConfig.MessageMode))

	// 11. 启动 HTTP 服务
	engine := https_server.Init(handler.NewHandlers(service.Svc))
	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		if err := engine.Run(addr); err != nil {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	cancel()
	if err := service.Svc.Broker.Close(); err != nil {
		zap.L().Error("关闭消息转发器失败", zap.Error(err))
	}
	zap.L().Info("服务器已关闭")
}
