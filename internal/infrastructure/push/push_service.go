package push

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi20170525 "github.com/alibabacloud-go/dysmsapi-20170525/v4/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	"go.uber.org/zap"

	"meetup_hub_server/internal/config"
	myredis "meetup_hub_server/internal/dao/redis"
)

// localPushService 本地推送实现，只打日志不调用第三方
type localPushService struct{}

func (s *localPushService) PushToDevice(userId string, title string, body string, data map[string]string) error {
	zap.L().Info("【MockPush】device push",
		zap.String("user_id", userId),
		zap.String("title", title),
		zap.String("body", body),
		zap.Any("data", data),
	)
	return nil
}

func shouldUseMock(cfg config.PushConfig) bool {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("MEETUPHUB_PUSH_MODE")))
	if mode == "mock" || mode == "local" || mode == "test" {
		return true
	}
	// configs/config.toml 默认是占位字符串；没配真实 AK 时默认走 mock，便于本机跑通通知链路
	ak := strings.ToLower(strings.TrimSpace(cfg.AccessKeyID))
	ask := strings.ToLower(strings.TrimSpace(cfg.AccessKeySecret))
	if ak == "" || ask == "" {
		return true
	}
	if strings.Contains(ak, "your accesskey") || strings.Contains(ask, "your accesskey") {
		return true
	}
	return false
}

// aliyunSmsPushService 阿里云短信网关推送实现
// 用户手机号由外部身份服务写入缓存，键为 push_phone_<userId>
type aliyunSmsPushService struct {
	client *dysmsapi20170525.Client
	cache  myredis.CacheService // 依赖抽象接口而非具体 Redis 实现
}

// Init 初始化推送服务
// 未配置真实 AK 时降级为本地 Mock 实现
func Init(cacheService myredis.CacheService) (PushService, error) {
	pushCfg := config.GetConfig().PushConfig
	if shouldUseMock(pushCfg) {
		zap.L().Warn("Push Service 使用本地 Mock 模式（仅打日志，不调用第三方网关）")
		return &localPushService{}, nil
	}

	conf := &openapi.Config{
		AccessKeyId:     tea.String(pushCfg.AccessKeyID),
		AccessKeySecret: tea.String(pushCfg.AccessKeySecret),
	}
	conf.Endpoint = tea.String("dysmsapi.aliyuncs.com")
	client, err := dysmsapi20170525.NewClient(conf)
	if err != nil {
		zap.L().Error("Aliyun Push Client Init Failed", zap.Error(err))
		return nil, err
	}

	return &aliyunSmsPushService{client: client, cache: cacheService}, nil
}

// NewAliyunSmsPushService 创建阿里云推送服务实例（用于依赖注入）
func NewAliyunSmsPushService(client *dysmsapi20170525.Client, cacheService myredis.CacheService) PushService {
	return &aliyunSmsPushService{client: client, cache: cacheService}
}

// PushToDevice 通过短信网关推送通知
// 缓存中没有手机号的用户静默跳过，不算失败
func (s *aliyunSmsPushService) PushToDevice(userId string, title string, body string, data map[string]string) error {
	telephone, err := s.cache.Get(context.Background(), "push_phone_"+userId)
	if err != nil {
		zap.L().Error("查询推送手机号失败", zap.Error(err), zap.String("user_id", userId))
		return err
	}
	if telephone == "" {
		// 用户未绑定手机号，跳过
		return nil
	}

	pushCfg := config.GetConfig().PushConfig
	signName := pushCfg.SignName
	if signName == "" {
		signName = "阿里云短信测试"
	}
	templateCode := pushCfg.TemplateCode
	if templateCode == "" {
		templateCode = "SMS_154950909"
	}

	// 对应模板中的变量 ${code}
	param, _ := json.Marshal(map[string]string{"code": title + " " + body})
	sendSmsRequest := &dysmsapi20170525.SendSmsRequest{
		SignName:      tea.String(signName),
		TemplateCode:  tea.String(templateCode),
		PhoneNumbers:  tea.String(telephone),
		TemplateParam: tea.String(string(param)),
	}

	runtime := &util.RuntimeOptions{}
	rsp, err := s.client.SendSmsWithOptions(sendSmsRequest, runtime)
	if err != nil {
		zap.L().Error("调用阿里云推送网关发生系统级错误", zap.Error(err), zap.String("user_id", userId))
		return err
	}

	// 即使 err 为 nil，也需要看 rsp.Body.Code 是否为 "OK"
	zap.L().Info("推送网关响应", zap.String("response", *util.ToJSONString(rsp)))
	return nil
}
