// Package model 定义数据库实体模型
// 本文件定义参与者模型（聚会报名记录）
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Participant 参与者模型
// 对应数据库 participant 表
// 退出采用软取消（置 cancelled_at），同一 (meeting_uuid, user_id)
// 同时最多存在一条 cancelled_at 为空的有效记录
type Participant struct {
	gorm.Model

	Uuid        string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:参与记录唯一id"`
	MeetingUuid string `gorm:"column:meeting_uuid;index;type:char(20);not null;comment:聚会uuid"`
	UserId      string `gorm:"column:user_id;index;type:char(20);not null;comment:用户uuid"`

	// LabelOrdinal 匿名标识序号，报名时按"报名前有效人数+1"一次性分配，永不重排
	// 展示文本由 pkg/label 纯函数生成
	LabelOrdinal int `gorm:"column:label_ordinal;not null;comment:匿名标识序号"`

	// CancelledAt 非空表示已退出；报名时间即 CreatedAt
	CancelledAt sql.NullTime `gorm:"column:cancelled_at;index;comment:退出时间"`

	// Attended 出席记录，聚会结束后由发起人/管理员标记，可重复标记
	Attended sql.NullBool `gorm:"column:attended;comment:是否出席"`
}

// TableName 指定表名
func (Participant) TableName() string {
	return "participant"
}

// Active 判断报名记录是否仍然有效
func (p *Participant) Active() bool {
	return !p.CancelledAt.Valid
}
