package request

// PostMessageRequest 发送群聊消息请求
// 使用位置:
//   - internal/handler/message_handler.go: PostMessage
type PostMessageRequest struct {
	Type     int8   `json:"type"`
	Content  string `json:"content"`
	ImageUrl string `json:"image_url"`
}
