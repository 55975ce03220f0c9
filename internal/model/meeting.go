// Package model 定义数据库实体模型
// 本文件定义聚会模型，聚会是整个系统的聚合根
package model

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
)

// Meeting 聚会模型
// 对应数据库 meeting 表
// 既存储一次性的具体聚会，也存储周期模板（IsTemplate=true，不可报名，
// 由外部调度器按周物化出具体场次）
type Meeting struct {
	gorm.Model

	// Uuid 聚会唯一标识，M + 时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:聚会唯一id"`

	// HostId 发起人 uuid，由外部身份服务提供
	HostId string `gorm:"column:host_id;index;type:char(20);not null;comment:发起人uuid"`

	Title    string `gorm:"column:title;type:varchar(50);not null;comment:标题"`
	Location string `gorm:"column:location;type:varchar(100);comment:地点"`

	// Purpose 聚会目的，参见 pkg/enum/meeting/meeting_purpose_enum
	Purpose int8 `gorm:"column:purpose;default:0;comment:目的，0.学习，1.兴趣，2.运动，3.社交，4.其他"`

	// MaxParticipants 人数上限，含发起人
	MaxParticipants int `gorm:"column:max_participants;not null;comment:人数上限"`

	// Status 存储状态机：0.招募中，1.已成团，2.已取消
	// "已结束" 不落库，读取时由 EndsAt 推导
	Status int8 `gorm:"column:status;default:0;comment:状态，0.招募中，1.已成团，2.已取消"`

	// IsTemplate 周期模板标记；模板永远不可直接报名
	IsTemplate bool `gorm:"column:is_template;default:false;comment:是否周期模板"`

	// 一次性聚会 / 已物化场次的起止时间
	StartsAt sql.NullTime `gorm:"column:starts_at;comment:开始时间"`
	EndsAt   sql.NullTime `gorm:"column:ends_at;comment:结束时间"`

	// 周期模板字段：每周几、几点开始、持续多久
	DayOfWeek   int8   `gorm:"column:day_of_week;default:0;comment:周期聚会星期，0=周日"`
	TimeOfDay   string `gorm:"column:time_of_day;type:char(5);comment:周期聚会开始时刻 HH:MM"`
	DurationMin int    `gorm:"column:duration_min;default:0;comment:周期聚会时长(分钟)"`

	// 物化场次回指模板；(template_uuid, week_key) 唯一保证同一周只物化一次
	// 非物化聚会两列均为 NULL，不参与唯一约束
	TemplateUuid sql.NullString `gorm:"column:template_uuid;type:char(20);uniqueIndex:idx_template_week;comment:来源模板uuid"`
	WeekKey      sql.NullString `gorm:"column:week_key;type:char(10);uniqueIndex:idx_template_week;comment:ISO周，如2026-W35"`

	// CoverUrl 封面图，对象存储返回的引用
	CoverUrl string `gorm:"column:cover_url;type:varchar(255);comment:封面图引用"`
}

// TableName 指定表名
func (Meeting) TableName() string {
	return "meeting"
}

// Ended 判断聚会是否已过结束时间
func (m *Meeting) Ended(now time.Time) bool {
	return m.EndsAt.Valid && now.After(m.EndsAt.Time)
}

// EffectiveStatus 返回读取侧状态
// 招募中/已成团的聚会过了结束时间即视为已结束；已取消保持已取消
func (m *Meeting) EffectiveStatus(now time.Time) int8 {
	if m.Status != meeting_status_enum.CANCELLED && m.Ended(now) {
		return meeting_status_enum.CLOSED
	}
	return m.Status
}
