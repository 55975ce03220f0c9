package constants

import "time"

const (
	CHANNEL_SIZE        = 100             // 通道大小
	TYPING_TTL          = 5 * time.Second // 输入中信号的过期时间
	CONFLICT_MAX_RETRY  = 3               // 并发冲突的最大重试次数
	REDIS_TIMEOUT       = 1               // redis timeout (分钟)
	DEFAULT_POLL_PERIOD = 10 * time.Second // 兜底轮询的默认间隔
)
