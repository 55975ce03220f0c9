package respond

// NotificationRespond 单条通知响应
// 使用位置:
//   - internal/service/notify/dispatcher.go: List
type NotificationRespond struct {
	NotificationId string `json:"notification_id"`
	Kind           int8   `json:"kind"`
	MeetingId      string `json:"meeting_id"`
	RelatedId      string `json:"related_id,omitempty"`
	Body           string `json:"body"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

// NotificationListRespond 通知列表响应，附带未读计数
type NotificationListRespond struct {
	Items       []NotificationRespond `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
}
