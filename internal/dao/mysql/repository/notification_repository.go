package repository

import (
	"time"

	"meetup_hub_server/internal/model"

	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知 Repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateBatch 批量创建通知
func (r *notificationRepository) CreateBatch(notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.Create(&notifications).Error; err != nil {
		return wrapDBError(err, "创建通知")
	}
	return nil
}

// FindByUuid 根据 UUID 查找通知
func (r *notificationRepository) FindByUuid(uuid string) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.First(&n, "uuid = ?", uuid).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通知 uuid=%s", uuid)
	}
	return &n, nil
}

// FindByRecipient 查询接收人的通知，按创建时间倒序
func (r *notificationRepository) FindByRecipient(recipientId string, limit int) ([]model.Notification, error) {
	var list []model.Notification
	q := r.db.Where("recipient_id = ?", recipientId).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通知列表 recipient=%s", recipientId)
	}
	return list, nil
}

// CountUnread 统计接收人的未读数
func (r *notificationRepository) CountUnread(recipientId string) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientId).
		Count(&count).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计未读通知 recipient=%s", recipientId)
	}
	return count, nil
}

// MarkRead 标记单条已读
func (r *notificationRepository) MarkRead(uuid string, at time.Time) error {
	if err := r.db.Model(&model.Notification{}).
		Where("uuid = ? AND read_at IS NULL", uuid).
		Update("read_at", at).Error; err != nil {
		return wrapDBErrorf(err, "标记通知已读 uuid=%s", uuid)
	}
	return nil
}

// MarkAllRead 标记接收人的全部通知已读
func (r *notificationRepository) MarkAllRead(recipientId string, at time.Time) error {
	if err := r.db.Model(&model.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientId).
		Update("read_at", at).Error; err != nil {
		return wrapDBErrorf(err, "标记全部已读 recipient=%s", recipientId)
	}
	return nil
}

// DeleteByUuid 删除单条通知
func (r *notificationRepository) DeleteByUuid(uuid string) error {
	if err := r.db.Where("uuid = ?", uuid).Delete(&model.Notification{}).Error; err != nil {
		return wrapDBErrorf(err, "删除通知 uuid=%s", uuid)
	}
	return nil
}
