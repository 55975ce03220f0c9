// Package model 定义数据库实体模型
// 本文件定义已读回执模型
package model

import "gorm.io/gorm"

// ReadReceipt 已读回执
// 对应数据库 read_receipt 表
// (meeting_uuid, sequence, user_id) 唯一，重复 markRead 通过
// INSERT IGNORE 天然幂等；未读数是派生值，不单独存储
type ReadReceipt struct {
	gorm.Model

	MeetingUuid string `gorm:"column:meeting_uuid;uniqueIndex:idx_receipt;type:char(20);not null;comment:聚会uuid"`
	Sequence    int64  `gorm:"column:sequence;uniqueIndex:idx_receipt;not null;comment:消息序号"`
	UserId      string `gorm:"column:user_id;uniqueIndex:idx_receipt;index;type:char(20);not null;comment:确认已读的用户uuid"`
}

// TableName 指定表名
func (ReadReceipt) TableName() string {
	return "read_receipt"
}
