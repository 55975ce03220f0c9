package request

// MarkReadRequest 已读回执请求
// 标记截至 UptoSequence 的全部消息为已读，重复提交幂等
// 使用位置:
//   - internal/handler/message_handler.go: MarkRead
type MarkReadRequest struct {
	UptoSequence int64 `json:"upto_sequence" binding:"required,min=1"`
}
