package request

// CreateMeetingRequest 创建聚会请求
// 使用位置:
//   - internal/handler/meeting_handler.go: CreateMeeting
//   - internal/service/meeting/service.go: Create
type CreateMeetingRequest struct {
	Title           string `json:"title" binding:"required"`
	Location        string `json:"location" binding:"required"`
	Purpose         int8   `json:"purpose"`
	MaxParticipants int    `json:"max_participants" binding:"required,min=2"`
	IsTemplate      bool   `json:"is_template"`
	// 单次聚会字段，格式 "2006-01-02 15:04:05"
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	// 模板字段
	DayOfWeek   int8   `json:"day_of_week" binding:"min=0,max=7"`
	TimeOfDay   string `json:"time_of_day"` // 格式 "19:30"
	DurationMin int    `json:"duration_min"`
	CoverUrl    string `json:"cover_url"`
}
