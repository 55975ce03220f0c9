// Package meeting_status_enum 定义聚会状态枚举
package meeting_status_enum

const (
	RECRUITING int8 = 0 // 招募中，唯一允许报名的状态
	CONFIRMED  int8 = 1 // 已成团
	CANCELLED  int8 = 2 // 已取消（人数不足自动取消）
	// CLOSED 不落库：结束时间过后由读取侧推导
	CLOSED int8 = 3
)
