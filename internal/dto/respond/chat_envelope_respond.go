package respond

// WebSocket 下行信封类型
const (
	EnvelopeKindMessage = "message" // 聊天消息
	EnvelopeKindTyping  = "typing"  // 正在输入信令
)

// ChatEnvelopeRespond WebSocket 下行消息信封
// 使用位置:
//   - internal/service/chat/service.go: Post / TypingSignal
type ChatEnvelopeRespond struct {
	Kind        string          `json:"kind"`
	MeetingId   string          `json:"meeting_id"`
	Message     *MessageRespond `json:"message,omitempty"`
	TypingLabel string          `json:"typing_label,omitempty"`
}
