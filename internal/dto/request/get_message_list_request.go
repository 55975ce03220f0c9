package request

// GetMessageListRequest 获取聊天记录请求
// After 为已持久化的最大序号，返回其后的全部消息
// 使用位置:
//   - internal/handler/message_handler.go: GetMessageList
type GetMessageListRequest struct {
	After int64 `json:"after" form:"after" binding:"min=0"`
	Limit int   `json:"limit" form:"limit" binding:"min=0"`
}
