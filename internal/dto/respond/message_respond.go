package respond

// MessageRespond 群聊消息响应
// Sequence 为会内连续递增序号，客户端按其排序与去重
// 使用位置:
//   - internal/service/chat/service.go: Post / FetchSince
type MessageRespond struct {
	MessageId   string `json:"message_id"`
	MeetingId   string `json:"meeting_id"`
	Sequence    int64  `json:"sequence"`
	SenderId    string `json:"sender_id"`
	SenderLabel string `json:"sender_label"`
	Type        int8   `json:"type"`
	Content     string `json:"content"`
	ImageUrl    string `json:"image_url,omitempty"`
	ReadCount   int64  `json:"read_count"`
	CreatedAt   string `json:"created_at"`
}
