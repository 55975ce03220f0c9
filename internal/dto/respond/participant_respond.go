package respond

// ParticipantRespond 参与者名单响应
// Label 为匿名展示标签，按加入顺序分配且持有期间不变
// 使用位置:
//   - internal/service/roster/service.go: ListParticipants
type ParticipantRespond struct {
	UserId   string `json:"user_id"`
	Label    string `json:"label"`
	IsHost   bool   `json:"is_host"`
	JoinedAt string `json:"joined_at"`
	Attended *bool  `json:"attended,omitempty"`
}
