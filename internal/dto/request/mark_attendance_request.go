package request

// MarkAttendanceRequest 出勤登记请求
// 使用位置:
//   - internal/handler/roster_handler.go: MarkAttendance
type MarkAttendanceRequest struct {
	UserId   string `json:"user_id" binding:"required"`
	Attended *bool  `json:"attended" binding:"required"`
}
