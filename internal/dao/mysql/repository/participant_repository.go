// Package repository 提供数据访问层的具体实现
// 本文件实现 ParticipantRepository 接口
package repository

import (
	"time"

	"meetup_hub_server/internal/model"

	"gorm.io/gorm"
)

// participantRepository ParticipantRepository 接口的实现
type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository 创建 ParticipantRepository 实例
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// FindActive 查找用户在聚会中的有效报名记录
func (r *participantRepository) FindActive(meetingUuid, userId string) (*model.Participant, error) {
	var p model.Participant
	if err := r.db.Where("meeting_uuid = ? AND user_id = ? AND cancelled_at IS NULL", meetingUuid, userId).
		First(&p).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询参与者 meeting=%s user=%s", meetingUuid, userId)
	}
	return &p, nil
}

// FindActiveByMeeting 查找聚会的全部有效参与者，按报名先后排序
func (r *participantRepository) FindActiveByMeeting(meetingUuid string) ([]model.Participant, error) {
	var list []model.Participant
	if err := r.db.Where("meeting_uuid = ? AND cancelled_at IS NULL", meetingUuid).
		Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询参与者列表 meeting=%s", meetingUuid)
	}
	return list, nil
}

// FindByMeeting 查找聚会的全部报名记录（含已退出，消息标签渲染需要）
func (r *participantRepository) FindByMeeting(meetingUuid string) ([]model.Participant, error) {
	var list []model.Participant
	if err := r.db.Where("meeting_uuid = ?", meetingUuid).
		Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询全部报名记录 meeting=%s", meetingUuid)
	}
	return list, nil
}

// FindAny 查找用户在聚会中最近一条报名记录，不论是否已退出
func (r *participantRepository) FindAny(meetingUuid, userId string) (*model.Participant, error) {
	var p model.Participant
	if err := r.db.Where("meeting_uuid = ? AND user_id = ?", meetingUuid, userId).
		Order("created_at DESC").First(&p).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询报名记录 meeting=%s user=%s", meetingUuid, userId)
	}
	return &p, nil
}

// CountActive 统计聚会的有效人数
func (r *participantRepository) CountActive(meetingUuid string) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Participant{}).
		Where("meeting_uuid = ? AND cancelled_at IS NULL", meetingUuid).
		Count(&count).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计有效人数 meeting=%s", meetingUuid)
	}
	return count, nil
}

// MaxLabelOrdinal 查询聚会历史上分配过的最大标签序号（含已退出）
// 序号只增不复用，退出者的标签在历史消息里仍然唯一
func (r *participantRepository) MaxLabelOrdinal(meetingUuid string) (int, error) {
	var max int
	if err := r.db.Model(&model.Participant{}).
		Where("meeting_uuid = ?", meetingUuid).
		Select("COALESCE(MAX(label_ordinal), 0)").Scan(&max).Error; err != nil {
		return 0, wrapDBErrorf(err, "查询最大标签序号 meeting=%s", meetingUuid)
	}
	return max, nil
}

// Create 创建报名记录
func (r *participantRepository) Create(participant *model.Participant) error {
	if err := r.db.Create(participant).Error; err != nil {
		return wrapDBError(err, "创建报名记录")
	}
	return nil
}

// Cancel 软取消报名
func (r *participantRepository) Cancel(meetingUuid, userId string, at time.Time) error {
	if err := r.db.Model(&model.Participant{}).
		Where("meeting_uuid = ? AND user_id = ? AND cancelled_at IS NULL", meetingUuid, userId).
		Update("cancelled_at", at).Error; err != nil {
		return wrapDBErrorf(err, "取消报名 meeting=%s user=%s", meetingUuid, userId)
	}
	return nil
}

// MarkAttendance 标记出席，可重复标记
func (r *participantRepository) MarkAttendance(meetingUuid, userId string, attended bool) error {
	if err := r.db.Model(&model.Participant{}).
		Where("meeting_uuid = ? AND user_id = ? AND cancelled_at IS NULL", meetingUuid, userId).
		Update("attended", attended).Error; err != nil {
		return wrapDBErrorf(err, "标记出席 meeting=%s user=%s", meetingUuid, userId)
	}
	return nil
}

// DeleteByMeetingUuid 删除聚会的全部报名记录
func (r *participantRepository) DeleteByMeetingUuid(meetingUuid string) error {
	if err := r.db.Unscoped().Where("meeting_uuid = ?", meetingUuid).Delete(&model.Participant{}).Error; err != nil {
		return wrapDBErrorf(err, "删除聚会全部报名 meeting=%s", meetingUuid)
	}
	return nil
}
