// Package push 提供设备推送服务
// 本文件定义推送服务接口，遵循依赖倒置原则
package push

// PushService 设备推送服务接口
// 抽象推送操作，支持多种实现（阿里云短信网关、本地 mock 等）
// 通知分发器应依赖此接口而非具体实现
type PushService interface {
	// PushToDevice 向用户的设备推送一条通知
	// 推送是尽力而为的投递，失败由调用方记录日志后忽略
	PushToDevice(userId string, title string, body string, data map[string]string) error
}

// 确保两种实现均满足 PushService 接口
var (
	_ PushService = (*localPushService)(nil)
	_ PushService = (*aliyunSmsPushService)(nil)
)
