// Package memrepo 提供 Repository 接口的内存实现
// 供单元测试和本地快速验证使用，语义与 MySQL 实现对齐：
// 唯一键冲突返回 CodeConflict，未命中返回 CodeNotFound
package memrepo

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/pkg/errorx"
)

// NewRepositories 创建内存 Repository 聚合
// db 为空时 Transaction 直接内联执行，事务语义退化为顺序执行
func NewRepositories() *repository.Repositories {
	s := &store{
		meetings:      make(map[string]*model.Meeting),
		participants:  make([]*model.Participant, 0),
		messages:      make([]*model.ChatMessage, 0),
		receipts:      make(map[string]struct{}),
		notifications: make(map[string]*model.Notification),
	}
	return &repository.Repositories{
		Meeting:      &meetingRepo{s: s},
		Participant:  &participantRepo{s: s},
		Message:      &messageRepo{s: s},
		ReadReceipt:  &receiptRepo{s: s},
		Notification: &notificationRepo{s: s},
	}
}

// store 全部表共享一把锁，内存实现不追求并行度
type store struct {
	mu            sync.Mutex
	meetings      map[string]*model.Meeting
	participants  []*model.Participant
	messages      []*model.ChatMessage
	receipts      map[string]struct{}
	notifications map[string]*model.Notification
	idSeq         uint
}

func (s *store) nextID() uint {
	s.idSeq++
	return s.idSeq
}

func receiptKey(meetingUuid string, sequence int64, userId string) string {
	return fmt.Sprintf("%s|%d|%s", meetingUuid, sequence, userId)
}

type meetingRepo struct{ s *store }

func (r *meetingRepo) FindByUuid(uuid string) (*model.Meeting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.meetings[uuid]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "聚会不存在")
	}
	cp := *m
	return &cp, nil
}

func (r *meetingRepo) FindByHostId(hostId string) ([]model.Meeting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Meeting
	for _, m := range r.s.meetings {
		if m.HostId == hostId {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *meetingRepo) FindInstance(templateUuid, weekKey string) (*model.Meeting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.meetings {
		if m.TemplateUuid.Valid && m.TemplateUuid.String == templateUuid &&
			m.WeekKey.Valid && m.WeekKey.String == weekKey {
			cp := *m
			return &cp, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "场次不存在")
}

func (r *meetingRepo) Create(meeting *model.Meeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.meetings[meeting.Uuid]; ok {
		return errorx.New(errorx.CodeConflict, "聚会uuid冲突")
	}
	if meeting.TemplateUuid.Valid && meeting.WeekKey.Valid {
		for _, m := range r.s.meetings {
			if m.TemplateUuid.Valid && m.TemplateUuid.String == meeting.TemplateUuid.String &&
				m.WeekKey.Valid && m.WeekKey.String == meeting.WeekKey.String {
				return errorx.New(errorx.CodeConflict, "同一周的场次已存在")
			}
		}
	}
	meeting.ID = r.s.nextID()
	meeting.CreatedAt = time.Now()
	cp := *meeting
	r.s.meetings[meeting.Uuid] = &cp
	return nil
}

func (r *meetingRepo) Update(meeting *model.Meeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.meetings[meeting.Uuid]; !ok {
		return errorx.New(errorx.CodeNotFound, "聚会不存在")
	}
	cp := *meeting
	r.s.meetings[meeting.Uuid] = &cp
	return nil
}

func (r *meetingRepo) UpdateStatusFrom(uuid string, from, to int8) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.meetings[uuid]
	if !ok || m.Status != from {
		return 0, nil
	}
	m.Status = to
	return 1, nil
}

func (r *meetingRepo) DeleteByUuid(uuid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.meetings, uuid)
	return nil
}

type participantRepo struct{ s *store }

func (r *participantRepo) FindActive(meetingUuid, userId string) (*model.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && p.UserId == userId && !p.CancelledAt.Valid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "报名记录不存在")
}

func (r *participantRepo) FindActiveByMeeting(meetingUuid string) ([]model.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Participant
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && !p.CancelledAt.Valid {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *participantRepo) FindByMeeting(meetingUuid string) ([]model.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Participant
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *participantRepo) FindAny(meetingUuid, userId string) (*model.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *model.Participant
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && p.UserId == userId {
			if latest == nil || p.ID > latest.ID {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, errorx.New(errorx.CodeNotFound, "报名记录不存在")
	}
	cp := *latest
	return &cp, nil
}

func (r *participantRepo) CountActive(meetingUuid string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && !p.CancelledAt.Valid {
			n++
		}
	}
	return n, nil
}

func (r *participantRepo) MaxLabelOrdinal(meetingUuid string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && p.LabelOrdinal > max {
			max = p.LabelOrdinal
		}
	}
	return max, nil
}

func (r *participantRepo) Create(participant *model.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.Uuid == participant.Uuid {
			return errorx.New(errorx.CodeConflict, "参与记录uuid冲突")
		}
	}
	participant.ID = r.s.nextID()
	participant.CreatedAt = time.Now()
	cp := *participant
	r.s.participants = append(r.s.participants, &cp)
	return nil
}

func (r *participantRepo) Cancel(meetingUuid, userId string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && p.UserId == userId && !p.CancelledAt.Valid {
			p.CancelledAt.Time = at
			p.CancelledAt.Valid = true
			return nil
		}
	}
	return nil
}

func (r *participantRepo) MarkAttendance(meetingUuid, userId string, attended bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.MeetingUuid == meetingUuid && p.UserId == userId && !p.CancelledAt.Valid {
			p.Attended.Bool = attended
			p.Attended.Valid = true
			return nil
		}
	}
	return errorx.New(errorx.CodeNotFound, "报名记录不存在")
}

func (r *participantRepo) DeleteByMeetingUuid(meetingUuid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.participants[:0]
	for _, p := range r.s.participants {
		if p.MeetingUuid != meetingUuid {
			kept = append(kept, p)
		}
	}
	r.s.participants = kept
	return nil
}

type messageRepo struct{ s *store }

func (r *messageRepo) Create(message *model.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.MeetingUuid == message.MeetingUuid && m.Sequence == message.Sequence {
			return errorx.New(errorx.CodeConflict, "消息序号冲突")
		}
	}
	message.ID = r.s.nextID()
	message.CreatedAt = time.Now()
	cp := *message
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

func (r *messageRepo) MaxSequence(meetingUuid string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for _, m := range r.s.messages {
		if m.MeetingUuid == meetingUuid && m.Sequence > max {
			max = m.Sequence
		}
	}
	return max, nil
}

func (r *messageRepo) FindAfterSequence(meetingUuid string, afterSeq int64, limit int) ([]model.ChatMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range r.s.messages {
		if m.MeetingUuid == meetingUuid && m.Sequence > afterSeq {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *messageRepo) FindUpToSequence(meetingUuid string, uptoSeq int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []int64
	for _, m := range r.s.messages {
		if m.MeetingUuid == meetingUuid && m.Sequence <= uptoSeq {
			out = append(out, m.Sequence)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *messageRepo) DeleteByMeetingUuid(meetingUuid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.messages[:0]
	for _, m := range r.s.messages {
		if m.MeetingUuid != meetingUuid {
			kept = append(kept, m)
		}
	}
	r.s.messages = kept
	return nil
}

type receiptRepo struct{ s *store }

func (r *receiptRepo) CreateIgnore(receipts []model.ReadReceipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rc := range receipts {
		r.s.receipts[receiptKey(rc.MeetingUuid, rc.Sequence, rc.UserId)] = struct{}{}
	}
	return nil
}

func (r *receiptRepo) FindAckedSequences(meetingUuid, userId string) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []int64
	prefix := meetingUuid + "|"
	suffix := "|" + userId
	for key := range r.s.receipts {
		if len(key) > len(prefix)+len(suffix) &&
			key[:len(prefix)] == prefix && key[len(key)-len(suffix):] == suffix {
			var seq int64
			if _, err := fmt.Sscanf(key[len(prefix):], "%d", &seq); err == nil {
				out = append(out, seq)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *receiptRepo) CountAckers(meetingUuid string, sequence int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prefix := fmt.Sprintf("%s|%d|", meetingUuid, sequence)
	var n int64
	for key := range r.s.receipts {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			n++
		}
	}
	return n, nil
}

func (r *receiptRepo) DeleteByMeetingUuid(meetingUuid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prefix := meetingUuid + "|"
	for key := range r.s.receipts {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(r.s.receipts, key)
		}
	}
	return nil
}

type notificationRepo struct{ s *store }

func (r *notificationRepo) CreateBatch(notifications []model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range notifications {
		n := notifications[i]
		if _, ok := r.s.notifications[n.Uuid]; ok {
			return errorx.New(errorx.CodeConflict, "通知uuid冲突")
		}
		n.ID = r.s.nextID()
		n.CreatedAt = time.Now()
		cp := n
		r.s.notifications[n.Uuid] = &cp
	}
	return nil
}

func (r *notificationRepo) FindByUuid(uuid string) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[uuid]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "通知不存在")
	}
	cp := *n
	return &cp, nil
}

func (r *notificationRepo) FindByRecipient(recipientId string, limit int) ([]model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Notification
	for _, n := range r.s.notifications {
		if n.RecipientId == recipientId {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) CountUnread(recipientId string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, notif := range r.s.notifications {
		if notif.RecipientId == recipientId && !notif.ReadAt.Valid {
			n++
		}
	}
	return n, nil
}

func (r *notificationRepo) MarkRead(uuid string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n, ok := r.s.notifications[uuid]; ok && !n.ReadAt.Valid {
		n.ReadAt.Time = at
		n.ReadAt.Valid = true
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(recipientId string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.RecipientId == recipientId && !n.ReadAt.Valid {
			n.ReadAt.Time = at
			n.ReadAt.Valid = true
		}
	}
	return nil
}

func (r *notificationRepo) DeleteByUuid(uuid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.notifications, uuid)
	return nil
}
