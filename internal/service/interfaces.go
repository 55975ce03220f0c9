// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层调用
// 接口设计遵循依赖倒置原则，便于测试和解耦
package service

import (
	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/dto/respond"
	"meetup_hub_server/internal/service/notify"
)

// MeetingService 聚会业务接口
// 处理聚会的创建、修改、状态迁移和周期模板物化
type MeetingService interface {
	// Create 创建聚会或周期模板
	Create(hostId string, req request.CreateMeetingRequest) (*respond.MeetingRespond, error)
	// GetDetail 查询聚会详情
	GetDetail(meetingUuid string) (*respond.MeetingRespond, error)
	// ListByHost 查询发起人名下的聚会和模板
	ListByHost(hostId string) ([]respond.MeetingRespond, error)
	// UpdateDetails 修改聚会详情
	UpdateDetails(meetingUuid, actorId string, isAdmin bool, req request.UpdateMeetingRequest) error
	// Confirm 成团（招募中 -> 已成团）
	Confirm(meetingUuid, actorId string, isAdmin bool) error
	// Unconfirm 撤销成团（已成团 -> 招募中）
	Unconfirm(meetingUuid, actorId string, isAdmin bool) error
	// Cancel 取消聚会，重复取消幂等
	Cancel(meetingUuid, actorId string, isAdmin bool) error
	// AutoCancelIfUndersubscribed 开场前窗口内人数不足则自动取消
	AutoCancelIfUndersubscribed(meetingUuid string) (bool, error)
	// MaterializeInstance 把周期模板物化成某一 ISO 周的具体场次
	MaterializeInstance(templateUuid, actorId string, isAdmin bool, req request.MaterializeInstanceRequest) (*respond.MeetingRespond, error)
	// Delete 解散聚会并级联清理名单、消息和回执
	Delete(meetingUuid, actorId string, isAdmin bool) error
}

// RosterService 聚会名单业务接口
// 处理报名、退出、出勤登记和名单查询
type RosterService interface {
	// Join 报名聚会，分配固定的匿名标签序号
	Join(meetingUuid, userId string) (*respond.ParticipantRespond, error)
	// Leave 退出聚会
	Leave(meetingUuid, userId string) error
	// MarkAttendance 出勤登记（聚会结束后，发起人或管理员操作）
	MarkAttendance(meetingUuid, actorId string, isAdmin bool, req request.MarkAttendanceRequest) error
	// ListParticipants 查询有效名单
	ListParticipants(meetingUuid, requesterId string, isAdmin bool) ([]respond.ParticipantRespond, error)
}

// ChatService 群聊业务接口
// 处理消息发布、增量拉取、已读回执和输入中信号
type ChatService interface {
	// Post 发布消息，分配无空洞递增序号并实时分发
	Post(meetingUuid, senderId string, req request.PostMessageRequest) (*respond.MessageRespond, error)
	// FetchSince 按序号增量拉取消息
	FetchSince(meetingUuid, userId string, after int64, limit int) ([]respond.MessageRespond, error)
	// MarkRead 提交已读回执（截止到指定序号，幂等）
	MarkRead(meetingUuid, userId string, uptoSeq int64) error
	// TypingSignal 上报输入中信号
	TypingSignal(meetingUuid, userId string) error
	// ListTyping 查询当前正在输入的成员标签，仅有效参与者和管理员可见
	ListTyping(meetingUuid, userId string, isAdmin bool) ([]string, error)
	// HandleEnvelope 处理 Broker 送达的上行信封
	HandleEnvelope(data []byte)
}

// NotifyService 通知业务接口
// 处理通知分发、查询和已读管理
type NotifyService interface {
	// Emit 分发领域事件，落库并触发尽力推送
	Emit(event notify.Event) error
	// List 查询收件人的通知列表和未读数
	List(recipientId string, limit int) (*respond.NotificationListRespond, error)
	// MarkRead 标记单条通知已读，幂等
	MarkRead(recipientId, notificationUuid string) error
	// MarkAllRead 标记全部通知已读
	MarkAllRead(recipientId string) error
	// Delete 删除单条通知
	Delete(recipientId, notificationUuid string) error
}
