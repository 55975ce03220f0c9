package respond

// MeetingRespond 聚会详情响应
// Status 为派生后的有效状态，已过结束时间的聚会返回 CLOSED
// 使用位置:
//   - internal/service/meeting/service.go: GetDetail / ListByHost
type MeetingRespond struct {
	MeetingId        string `json:"meeting_id"`
	HostId           string `json:"host_id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	Purpose          int8   `json:"purpose"`
	MaxParticipants  int    `json:"max_participants"`
	Status           int8   `json:"status"`
	IsTemplate       bool   `json:"is_template"`
	StartsAt         string `json:"starts_at,omitempty"`
	EndsAt           string `json:"ends_at,omitempty"`
	DayOfWeek        int8   `json:"day_of_week,omitempty"`
	TimeOfDay        string `json:"time_of_day,omitempty"`
	DurationMin      int    `json:"duration_min,omitempty"`
	CoverUrl         string `json:"cover_url,omitempty"`
	ParticipantCount int64  `json:"participant_count"`
}
