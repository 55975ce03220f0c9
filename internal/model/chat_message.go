// Package model 定义数据库实体模型
// 本文件定义聊天消息模型
package model

import (
	"gorm.io/gorm"
)

// ChatMessage 聊天消息模型
// 对应数据库 chat_message 表
// 消息一经创建不可修改；排序与缺口检测以 Sequence 为准而不是时间戳，
// 因为实时通道可能乱序或丢包，客户端凭 "sequence 之后的全部" 对账
type ChatMessage struct {
	gorm.Model

	// Uuid 消息雪花 ID
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	MeetingUuid string `gorm:"column:meeting_uuid;uniqueIndex:idx_meeting_seq;type:char(20);not null;comment:聚会uuid"`

	// Sequence 聚会内单调递增且无缺口的序号，在聚会锁内分配
	Sequence int64 `gorm:"column:sequence;uniqueIndex:idx_meeting_seq;not null;comment:聚会内序号"`

	SenderId string `gorm:"column:sender_id;index;type:char(20);not null;comment:发送者uuid"`

	// Type 消息类型，0.文本，1.图片；参见 pkg/enum/message/message_type_enum
	Type int8 `gorm:"column:type;not null;comment:消息类型，0.文本，1.图片"`

	// Content 文本内容；纯图片消息时为空
	Content string `gorm:"column:content;type:TEXT;comment:消息内容"`

	// ImageUrl 图片引用；图片先上传到对象存储，这里只存返回的访问链接
	ImageUrl string `gorm:"column:image_url;type:varchar(255);comment:图片引用"`
}

// TableName 指定表名
func (ChatMessage) TableName() string {
	return "chat_message"
}
