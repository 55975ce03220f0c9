// Package repository 定义数据访问层接口和聚合结构
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"time"

	"meetup_hub_server/internal/model"
)

// MeetingRepository 聚会数据访问接口
type MeetingRepository interface {
	// FindByUuid 根据 UUID 查找聚会
	FindByUuid(uuid string) (*model.Meeting, error)
	// FindByHostId 根据发起人查找聚会
	FindByHostId(hostId string) ([]model.Meeting, error)
	// FindInstance 查找模板在指定 ISO 周已物化的场次
	FindInstance(templateUuid, weekKey string) (*model.Meeting, error)
	// Create 创建聚会（含模板）
	Create(meeting *model.Meeting) error
	// Update 更新聚会信息（全字段更新）
	Update(meeting *model.Meeting) error
	// UpdateStatusFrom 条件状态迁移：仅当当前状态为 from 时置为 to
	// 返回受影响行数，0 表示状态机竞争失败
	UpdateStatusFrom(uuid string, from, to int8) (int64, error)
	// DeleteByUuid 硬删除聚会本体（级联清理由 Service 层在事务中编排）
	DeleteByUuid(uuid string) error
}

// ParticipantRepository 参与者数据访问接口
type ParticipantRepository interface {
	// FindActive 查找用户在聚会中的有效报名记录
	FindActive(meetingUuid, userId string) (*model.Participant, error)
	// FindActiveByMeeting 查找聚会的全部有效参与者，按报名先后排序
	FindActiveByMeeting(meetingUuid string) ([]model.Participant, error)
	// FindByMeeting 查找聚会的全部报名记录（含已退出）
	FindByMeeting(meetingUuid string) ([]model.Participant, error)
	// FindAny 查找用户在聚会中最近一条报名记录，不论是否已退出
	FindAny(meetingUuid, userId string) (*model.Participant, error)
	// CountActive 统计聚会的有效人数
	CountActive(meetingUuid string) (int64, error)
	// MaxLabelOrdinal 查询聚会历史上分配过的最大标签序号（含已退出），无记录返回 0
	MaxLabelOrdinal(meetingUuid string) (int, error)
	// Create 创建报名记录
	Create(participant *model.Participant) error
	// Cancel 软取消报名（置 cancelled_at）
	Cancel(meetingUuid, userId string, at time.Time) error
	// MarkAttendance 标记出席，可重复标记
	MarkAttendance(meetingUuid, userId string, attended bool) error
	// DeleteByMeetingUuid 删除聚会的全部报名记录（解散聚会时用）
	DeleteByMeetingUuid(meetingUuid string) error
}

// MessageRepository 聊天消息数据访问接口
type MessageRepository interface {
	// Create 创建消息
	Create(message *model.ChatMessage) error
	// MaxSequence 查询聚会当前最大序号，无消息返回 0
	MaxSequence(meetingUuid string) (int64, error)
	// FindAfterSequence 查询序号大于 afterSeq 的消息，按序号升序
	FindAfterSequence(meetingUuid string, afterSeq int64, limit int) ([]model.ChatMessage, error)
	// FindUpToSequence 查询序号小于等于 uptoSeq 的消息序号列表
	FindUpToSequence(meetingUuid string, uptoSeq int64) ([]int64, error)
	// DeleteByMeetingUuid 删除聚会的全部消息
	DeleteByMeetingUuid(meetingUuid string) error
}

// ReadReceiptRepository 已读回执数据访问接口
type ReadReceiptRepository interface {
	// CreateIgnore 批量写入回执，已存在的行静默跳过（幂等）
	CreateIgnore(receipts []model.ReadReceipt) error
	// FindAckedSequences 查询用户在聚会中已确认的序号集合
	FindAckedSequences(meetingUuid, userId string) ([]int64, error)
	// CountAckers 统计某条消息的已读人数
	CountAckers(meetingUuid string, sequence int64) (int64, error)
	// DeleteByMeetingUuid 删除聚会的全部回执
	DeleteByMeetingUuid(meetingUuid string) error
}

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	// CreateBatch 批量创建通知（事件一次分发多个接收人）
	CreateBatch(notifications []model.Notification) error
	// FindByUuid 根据 UUID 查找通知
	FindByUuid(uuid string) (*model.Notification, error)
	// FindByRecipient 查询接收人的通知，按创建时间倒序
	FindByRecipient(recipientId string, limit int) ([]model.Notification, error)
	// CountUnread 统计接收人的未读数
	CountUnread(recipientId string) (int64, error)
	// MarkRead 标记单条已读
	MarkRead(uuid string, at time.Time) error
	// MarkAllRead 标记接收人的全部通知已读
	MarkAllRead(recipientId string, at time.Time) error
	// DeleteByUuid 删除单条通知
	DeleteByUuid(uuid string) error
}
