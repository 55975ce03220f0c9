package request

// WebSocket 上行信封类型
const (
	EnvelopeKindPost   = "post"   // 发送聊天消息
	EnvelopeKindTyping = "typing" // 正在输入信令（不落库）
)

// ChatEnvelopeRequest WebSocket 上行消息信封
// MeetingId 和 SenderId 由网关按连接身份强制覆盖，不信任客户端填写的值
// 使用位置:
//   - internal/service/chat/ws_gateway.go: Read
//   - internal/service/chat/service.go: HandleEnvelope
type ChatEnvelopeRequest struct {
	Kind      string `json:"kind"`
	MeetingId string `json:"meeting_id"`
	SenderId  string `json:"sender_id"`
	Type      int8   `json:"type"`
	Content   string `json:"content"`
	ImageUrl  string `json:"image_url"`
}
