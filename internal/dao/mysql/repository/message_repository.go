package repository

import (
	"meetup_hub_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 创建消息
func (r *messageRepository) Create(message *model.ChatMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

// MaxSequence 查询聚会当前最大序号，无消息返回 0
func (r *messageRepository) MaxSequence(meetingUuid string) (int64, error) {
	var max int64
	if err := r.db.Model(&model.ChatMessage{}).
		Where("meeting_uuid = ?", meetingUuid).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error; err != nil {
		return 0, wrapDBErrorf(err, "查询最大序号 meeting=%s", meetingUuid)
	}
	return max, nil
}

// FindAfterSequence 查询序号大于 afterSeq 的消息，按序号升序
// limit <= 0 表示不限制
func (r *messageRepository) FindAfterSequence(meetingUuid string, afterSeq int64, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	q := r.db.Where("meeting_uuid = ? AND sequence > ?", meetingUuid, afterSeq).Order("sequence ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 meeting=%s after=%d", meetingUuid, afterSeq)
	}
	return messages, nil
}

// FindUpToSequence 查询序号小于等于 uptoSeq 的消息序号列表
func (r *messageRepository) FindUpToSequence(meetingUuid string, uptoSeq int64) ([]int64, error) {
	var seqs []int64
	if err := r.db.Model(&model.ChatMessage{}).
		Where("meeting_uuid = ? AND sequence <= ?", meetingUuid, uptoSeq).
		Order("sequence ASC").
		Pluck("sequence", &seqs).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询序号列表 meeting=%s upto=%d", meetingUuid, uptoSeq)
	}
	return seqs, nil
}

// DeleteByMeetingUuid 删除聚会的全部消息
func (r *messageRepository) DeleteByMeetingUuid(meetingUuid string) error {
	if err := r.db.Unscoped().Where("meeting_uuid = ?", meetingUuid).Delete(&model.ChatMessage{}).Error; err != nil {
		return wrapDBErrorf(err, "删除聚会全部消息 meeting=%s", meetingUuid)
	}
	return nil
}
