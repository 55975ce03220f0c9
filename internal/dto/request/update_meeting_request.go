package request

// UpdateMeetingRequest 更新聚会详情请求
// 仅主持人或管理员可调用，满员或已结束的聚会拒绝修改人数上限
// 使用位置:
//   - internal/handler/meeting_handler.go: UpdateMeeting
type UpdateMeetingRequest struct {
	Title           string `json:"title"`
	Location        string `json:"location"`
	Purpose         *int8  `json:"purpose"`
	MaxParticipants *int   `json:"max_participants" binding:"omitempty,min=2"`
	CoverUrl        string `json:"cover_url"`
}
