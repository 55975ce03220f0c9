// Package roster 实现聚会名单业务逻辑
// 报名、退出、出勤登记和名单查询
// 报名和退出都在聚会互斥锁内执行，人数上限和标签序号的判定不会竞争
package roster

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meetup_hub_server/internal/dao/mysql/repository"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/dto/respond"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/pkg/constants"
	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
	"meetup_hub_server/pkg/label"
	"meetup_hub_server/pkg/meetinglock"
	"meetup_hub_server/pkg/util/random"
)

// EventEmitter 领域事件出口，由通知分发器实现
type EventEmitter interface {
	Emit(event notify.Event) error
}

// rosterService 名单业务逻辑实现
type rosterService struct {
	repos   *repository.Repositories
	cache   myredis.AsyncCacheService
	locks   *meetinglock.Registry
	emitter EventEmitter
}

// NewRosterService 构造函数，注入所有依赖
func NewRosterService(repos *repository.Repositories, cacheService myredis.AsyncCacheService,
	locks *meetinglock.Registry, emitter EventEmitter) *rosterService {
	return &rosterService{
		repos:   repos,
		cache:   cacheService,
		locks:   locks,
		emitter: emitter,
	}
}

// emit 发出领域事件，失败只记日志
func (s *rosterService) emit(event notify.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(event); err != nil {
		zap.L().Warn("分发名单事件失败", zap.Error(err), zap.Int8("kind", event.Kind))
	}
}

// invalidateCache 人数变化后异步删除聚会详情缓存
func (s *rosterService) invalidateCache(meetingUuid string) {
	s.cache.SubmitTask(func() {
		if err := s.cache.Delete(context.Background(), "meeting_info_"+meetingUuid); err != nil {
			zap.L().Warn("删除聚会缓存失败", zap.Error(err))
		}
	})
}

// findMeeting 查找聚会并做公共校验
func (s *rosterService) findMeeting(meetingUuid string) (*model.Meeting, error) {
	meeting, err := s.repos.Meeting.FindByUuid(meetingUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "聚会不存在")
		}
		zap.L().Error("查询聚会失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if meeting.IsTemplate {
		return nil, errorx.New(errorx.CodeInvalidState, "周期模板不能直接报名")
	}
	return meeting, nil
}

// Join 报名聚会
// 标签序号按“历史最大序号+1”一次性分配，持有期间不变；
// 退出者的序号不回收，历史消息里的标签不会指向新人
func (s *rosterService) Join(meetingUuid, userId string) (*respond.ParticipantRespond, error) {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return nil, err
	}
	if meeting.EffectiveStatus(time.Now()) != meeting_status_enum.RECRUITING {
		return nil, errorx.New(errorx.CodeInvalidState, "聚会不在招募中")
	}

	if _, err := s.repos.Participant.FindActive(meetingUuid, userId); err == nil {
		return nil, errorx.ErrAlreadyJoined
	} else if !errorx.IsNotFound(err) {
		zap.L().Error("查询报名记录失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	count, err := s.repos.Participant.CountActive(meetingUuid)
	if err != nil {
		zap.L().Error("统计有效人数失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if count >= int64(meeting.MaxParticipants) {
		return nil, errorx.ErrCapacity
	}

	maxOrdinal, err := s.repos.Participant.MaxLabelOrdinal(meetingUuid)
	if err != nil {
		zap.L().Error("查询最大标签序号失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	participant := model.Participant{
		MeetingUuid:  meetingUuid,
		UserId:       userId,
		LabelOrdinal: maxOrdinal + 1,
	}
	for attempt := 0; ; attempt++ {
		participant.Uuid = fmt.Sprintf("P%s", random.GetNowAndLenRandomString(11))
		err = s.repos.Participant.Create(&participant)
		if err == nil {
			break
		}
		if errorx.IsCode(err, errorx.CodeConflict) && attempt < constants.CONFLICT_MAX_RETRY {
			continue
		}
		zap.L().Error("创建报名记录失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	s.invalidateCache(meetingUuid)
	s.emit(notify.Event{
		Kind:        notification_kind_enum.JOINED,
		MeetingUuid: meetingUuid,
		ActorId:     userId,
		RelatedId:   userId,
		Body:        label.For(participant.LabelOrdinal) + " 报名了「" + meeting.Title + "」",
	})

	return &respond.ParticipantRespond{
		UserId:   userId,
		Label:    label.For(participant.LabelOrdinal),
		IsHost:   false,
		JoinedAt: participant.CreatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

// Leave 退出聚会
// 发起人不能退出自己的聚会，只能取消整场
func (s *rosterService) Leave(meetingUuid, userId string) error {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if meeting.HostId == userId {
		return errorx.New(errorx.CodePermissionDenied, "发起人不能退出自己的聚会")
	}
	switch meeting.EffectiveStatus(time.Now()) {
	case meeting_status_enum.CANCELLED:
		return errorx.New(errorx.CodeInvalidState, "聚会已取消")
	case meeting_status_enum.CLOSED:
		return errorx.New(errorx.CodeInvalidState, "聚会已结束")
	}

	participant, err := s.repos.Participant.FindActive(meetingUuid, userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrNotAParticipant
		}
		zap.L().Error("查询报名记录失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	if err := s.repos.Participant.Cancel(meetingUuid, userId, time.Now()); err != nil {
		zap.L().Error("取消报名失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	s.invalidateCache(meetingUuid)
	s.emit(notify.Event{
		Kind:        notification_kind_enum.LEFT,
		MeetingUuid: meetingUuid,
		ActorId:     userId,
		RelatedId:   userId,
		Body:        label.For(participant.LabelOrdinal) + " 退出了「" + meeting.Title + "」",
	})
	return nil
}

// MarkAttendance 出勤登记
// 只有发起人或管理员可操作，且必须等聚会结束；重复标记幂等
func (s *rosterService) MarkAttendance(meetingUuid, actorId string, isAdmin bool, req request.MarkAttendanceRequest) error {
	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if meeting.HostId != actorId && !isAdmin {
		return errorx.ErrPermissionDenied
	}
	if meeting.EffectiveStatus(time.Now()) == meeting_status_enum.CANCELLED {
		return errorx.New(errorx.CodeInvalidState, "聚会已取消，无出勤可登记")
	}
	if !meeting.Ended(time.Now()) {
		return errorx.ErrNotYetEnded
	}

	if _, err := s.repos.Participant.FindActive(meetingUuid, req.UserId); err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrNotAParticipant
		}
		zap.L().Error("查询报名记录失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	if err := s.repos.Participant.MarkAttendance(meetingUuid, req.UserId, *req.Attended); err != nil {
		zap.L().Error("标记出勤失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	s.emit(notify.Event{
		Kind:        notification_kind_enum.ATTENDANCE_MARKED,
		MeetingUuid: meetingUuid,
		ActorId:     actorId,
		RelatedId:   req.UserId,
		Body:        "你在「" + meeting.Title + "」的出席记录已更新",
	})
	return nil
}

// ListParticipants 查询聚会名单
// 名单只对有效参与者和管理员可见，展示匿名标签而非真实身份
func (s *rosterService) ListParticipants(meetingUuid, requesterId string, isAdmin bool) ([]respond.ParticipantRespond, error) {
	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return nil, err
	}

	if !isAdmin {
		if _, err := s.repos.Participant.FindActive(meetingUuid, requesterId); err != nil {
			if errorx.IsNotFound(err) {
				return nil, errorx.ErrNotAParticipant
			}
			zap.L().Error("查询报名记录失败", zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
	}

	participants, err := s.repos.Participant.FindActiveByMeeting(meetingUuid)
	if err != nil {
		zap.L().Error("查询参与者列表失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	list := make([]respond.ParticipantRespond, 0, len(participants))
	for _, p := range participants {
		item := respond.ParticipantRespond{
			UserId:   p.UserId,
			Label:    label.For(p.LabelOrdinal),
			IsHost:   p.UserId == meeting.HostId,
			JoinedAt: p.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if p.Attended.Valid {
			attended := p.Attended.Bool
			item.Attended = &attended
		}
		list = append(list, item)
	}
	return list, nil
}
