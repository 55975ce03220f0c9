package request

// MaterializeInstanceRequest 模板实例化请求
// 按 ISO 周标识生成某一周的聚会实例，同一周重复调用幂等
// 使用位置:
//   - internal/handler/scheduler_handler.go: MaterializeInstance
type MaterializeInstanceRequest struct {
	IsoYear int `json:"iso_year" binding:"required"`
	IsoWeek int `json:"iso_week" binding:"required,min=1,max=53"`
}
