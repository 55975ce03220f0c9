// Package repository 提供数据访问层的具体实现
// 本文件实现 MeetingRepository 接口
package repository

import (
	"meetup_hub_server/internal/model"

	"gorm.io/gorm"
)

// meetingRepository MeetingRepository 接口的实现
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository 创建 MeetingRepository 实例
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

// FindByUuid 根据 UUID 查找聚会
func (r *meetingRepository) FindByUuid(uuid string) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := r.db.First(&meeting, "uuid = ?", uuid).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询聚会 uuid=%s", uuid)
	}
	return &meeting, nil
}

// FindByHostId 根据发起人查找聚会
func (r *meetingRepository) FindByHostId(hostId string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	if err := r.db.Where("host_id = ?", hostId).Order("created_at DESC").Find(&meetings).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询聚会 host_id=%s", hostId)
	}
	return meetings, nil
}

// FindInstance 查找模板在指定 ISO 周已物化的场次
func (r *meetingRepository) FindInstance(templateUuid, weekKey string) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := r.db.Where("template_uuid = ? AND week_key = ?", templateUuid, weekKey).First(&meeting).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询物化场次 template=%s week=%s", templateUuid, weekKey)
	}
	return &meeting, nil
}

// Create 创建聚会
func (r *meetingRepository) Create(meeting *model.Meeting) error {
	if err := r.db.Create(meeting).Error; err != nil {
		return wrapDBError(err, "创建聚会")
	}
	return nil
}

// Update 更新聚会信息（全字段更新）
func (r *meetingRepository) Update(meeting *model.Meeting) error {
	if err := r.db.Save(meeting).Error; err != nil {
		return wrapDBError(err, "更新聚会")
	}
	return nil
}

// UpdateStatusFrom 条件状态迁移
// WHERE status = from 的条件更新即数据库层的 compare-and-set，
// 返回 0 行说明状态已被并发修改
func (r *meetingRepository) UpdateStatusFrom(uuid string, from, to int8) (int64, error) {
	res := r.db.Model(&model.Meeting{}).
		Where("uuid = ? AND status = ?", uuid, from).
		Update("status", to)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "更新聚会状态 uuid=%s %d->%d", uuid, from, to)
	}
	return res.RowsAffected, nil
}

// DeleteByUuid 硬删除聚会本体
// 解散聚会要求原子清理全部关联数据，软删除会留下不可见的残余，这里用 Unscoped
func (r *meetingRepository) DeleteByUuid(uuid string) error {
	if err := r.db.Unscoped().Where("uuid = ?", uuid).Delete(&model.Meeting{}).Error; err != nil {
		return wrapDBErrorf(err, "删除聚会 uuid=%s", uuid)
	}
	return nil
}
