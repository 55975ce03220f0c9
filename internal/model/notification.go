// Package model 定义数据库实体模型
// 本文件定义通知模型
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Notification 通知模型
// 对应数据库 notification 表
// 由通知分发器在领域事件提交后写入；持久化行是事实来源，
// 推送只是尽力而为的附加投递，失败不影响通知本身
// 只有接收人能标记已读或删除
type Notification struct {
	gorm.Model

	Uuid        string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:通知唯一id"`
	RecipientId string `gorm:"column:recipient_id;index;type:char(20);not null;comment:接收人uuid"`

	// Kind 通知类型，参见 pkg/enum/notification/notification_kind_enum
	Kind int8 `gorm:"column:kind;not null;comment:类型，0.报名，1.退出，2.成团，3.取消，4.新消息，5.出席"`

	MeetingUuid string `gorm:"column:meeting_uuid;index;type:char(20);comment:关联聚会uuid"`

	// RelatedId 关联实体 id：报名/退出为用户 uuid，新消息为消息雪花 id 字符串
	RelatedId string `gorm:"column:related_id;type:char(20);comment:关联实体id"`

	Body string `gorm:"column:body;type:varchar(255);comment:通知文案"`

	// ReadAt 非空表示已读
	ReadAt sql.NullTime `gorm:"column:read_at;comment:已读时间"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notification"
}
