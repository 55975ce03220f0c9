// Package notification_kind_enum 定义通知类型枚举
package notification_kind_enum

const (
	JOINED            int8 = 0 // 有人报名（通知发起人）
	LEFT              int8 = 1 // 有人取消报名（通知发起人）
	CONFIRMED         int8 = 2 // 聚会成团（通知全部有效参与者）
	CANCELLED         int8 = 3 // 聚会取消（通知全部有效参与者）
	MESSAGE_POSTED    int8 = 4 // 新聊天消息（通知发送者以外的参与者）
	ATTENDANCE_MARKED int8 = 5 // 出席记录更新（通知本人）
)

// Title 返回推送展示用的标题
func Title(kind int8) string {
	switch kind {
	case JOINED:
		return "新成员报名"
	case LEFT:
		return "成员取消报名"
	case CONFIRMED:
		return "聚会已成团"
	case CANCELLED:
		return "聚会已取消"
	case MESSAGE_POSTED:
		return "新消息"
	case ATTENDANCE_MARKED:
		return "出席记录更新"
	default:
		return "通知"
	}
}
