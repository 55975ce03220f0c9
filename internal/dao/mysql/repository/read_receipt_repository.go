package repository

import (
	"meetup_hub_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type readReceiptRepository struct {
	db *gorm.DB
}

// NewReadReceiptRepository 创建已读回执 Repository
func NewReadReceiptRepository(db *gorm.DB) ReadReceiptRepository {
	return &readReceiptRepository{db: db}
}

// CreateIgnore 批量写入回执，唯一键冲突静默跳过
// markRead 的幂等性由 (meeting, sequence, user) 唯一索引 + DoNothing 保证
func (r *readReceiptRepository) CreateIgnore(receipts []model.ReadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error; err != nil {
		return wrapDBError(err, "写入已读回执")
	}
	return nil
}

// FindAckedSequences 查询用户在聚会中已确认的序号集合
func (r *readReceiptRepository) FindAckedSequences(meetingUuid, userId string) ([]int64, error) {
	var seqs []int64
	if err := r.db.Model(&model.ReadReceipt{}).
		Where("meeting_uuid = ? AND user_id = ?", meetingUuid, userId).
		Pluck("sequence", &seqs).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询已读序号 meeting=%s user=%s", meetingUuid, userId)
	}
	return seqs, nil
}

// CountAckers 统计某条消息的已读人数
func (r *readReceiptRepository) CountAckers(meetingUuid string, sequence int64) (int64, error) {
	var count int64
	if err := r.db.Model(&model.ReadReceipt{}).
		Where("meeting_uuid = ? AND sequence = ?", meetingUuid, sequence).
		Count(&count).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计已读人数 meeting=%s seq=%d", meetingUuid, sequence)
	}
	return count, nil
}

// DeleteByMeetingUuid 删除聚会的全部回执
func (r *readReceiptRepository) DeleteByMeetingUuid(meetingUuid string) error {
	if err := r.db.Unscoped().Where("meeting_uuid = ?", meetingUuid).Delete(&model.ReadReceipt{}).Error; err != nil {
		return wrapDBErrorf(err, "删除聚会全部回执 meeting=%s", meetingUuid)
	}
	return nil
}
