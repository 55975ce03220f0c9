// Package meeting 实现聚会生命周期业务逻辑
// 创建、修改、成团、取消、解散，以及周期模板的按周物化
// 状态迁移一律走数据库条件更新（compare-and-set），并发竞争返回 0 行即拒绝
package meeting

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meetup_hub_server/internal/config"
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
	"meetup_hub_server/pkg/meetinglock"
	"meetup_hub_server/pkg/util/random"
)

const timeLayout = "2006-01-02 15:04:05"

// EventEmitter 领域事件出口，由通知分发器实现
type EventEmitter interface {
	Emit(event notify.Event) error
}

// meetingService 聚会业务逻辑实现
type meetingService struct {
	repos   *repository.Repositories
	cache   myredis.AsyncCacheService
	locks   *meetinglock.Registry
	emitter EventEmitter
	conf    config.MeetingConfig
}

// NewMeetingService 构造函数，注入所有依赖
func NewMeetingService(repos *repository.Repositories, cacheService myredis.AsyncCacheService,
	locks *meetinglock.Registry, emitter EventEmitter, conf config.MeetingConfig) *meetingService {
	if conf.MinHeadcount <= 0 {
		conf.MinHeadcount = 2
	}
	return &meetingService{
		repos:   repos,
		cache:   cacheService,
		locks:   locks,
		emitter: emitter,
		conf:    conf,
	}
}

// emit 发出领域事件，失败只记日志
func (s *meetingService) emit(event notify.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(event); err != nil {
		zap.L().Warn("分发聚会事件失败", zap.Error(err), zap.Int8("kind", event.Kind))
	}
}

// invalidateCache 异步删除聚会详情缓存
func (s *meetingService) invalidateCache(meetingUuid string) {
	s.cache.SubmitTask(func() {
		if err := s.cache.Delete(context.Background(), "meeting_info_"+meetingUuid); err != nil {
			zap.L().Warn("删除聚会缓存失败", zap.Error(err))
		}
	})
}

// toRespond 组装聚会响应，状态为读取侧派生状态
func toRespond(meeting *model.Meeting, participantCount int64, now time.Time) *respond.MeetingRespond {
	rsp := &respond.MeetingRespond{
		MeetingId:        meeting.Uuid,
		HostId:           meeting.HostId,
		Title:            meeting.Title,
		Location:         meeting.Location,
		Purpose:          meeting.Purpose,
		MaxParticipants:  meeting.MaxParticipants,
		Status:           meeting.EffectiveStatus(now),
		IsTemplate:       meeting.IsTemplate,
		DayOfWeek:        meeting.DayOfWeek,
		TimeOfDay:        meeting.TimeOfDay,
		DurationMin:      meeting.DurationMin,
		CoverUrl:         meeting.CoverUrl,
		ParticipantCount: participantCount,
	}
	if meeting.StartsAt.Valid {
		rsp.StartsAt = meeting.StartsAt.Time.Format(timeLayout)
	}
	if meeting.EndsAt.Valid {
		rsp.EndsAt = meeting.EndsAt.Time.Format(timeLayout)
	}
	return rsp
}

// findMeeting 查找聚会并把 NotFound 翻译成业务错误
func (s *meetingService) findMeeting(meetingUuid string) (*model.Meeting, error) {
	meeting, err := s.repos.Meeting.FindByUuid(meetingUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "聚会不存在")
		}
		zap.L().Error("查询聚会失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return meeting, nil
}

// requireHost 校验操作者是发起人或管理员
func requireHost(meeting *model.Meeting, actorId string, isAdmin bool) error {
	if meeting.HostId != actorId && !isAdmin {
		return errorx.ErrPermissionDenied
	}
	return nil
}

// Create 创建聚会或周期模板
// 普通聚会创建即自动把发起人登记为 1 号参与者，两者在同一事务内
func (s *meetingService) Create(hostId string, req request.CreateMeetingRequest) (*respond.MeetingRespond, error) {
	meeting := model.Meeting{
		Uuid:            fmt.Sprintf("M%s", random.GetNowAndLenRandomString(11)),
		HostId:          hostId,
		Title:           req.Title,
		Location:        req.Location,
		Purpose:         req.Purpose,
		MaxParticipants: req.MaxParticipants,
		Status:          meeting_status_enum.RECRUITING,
		IsTemplate:      req.IsTemplate,
		CoverUrl:        req.CoverUrl,
	}

	if req.IsTemplate {
		if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
			return nil, errorx.New(errorx.CodeInvalidParam, "星期必须在 0-6 之间")
		}
		if _, err := time.Parse("15:04", req.TimeOfDay); err != nil {
			return nil, errorx.New(errorx.CodeInvalidParam, "开始时刻格式应为 HH:MM")
		}
		if req.DurationMin <= 0 {
			return nil, errorx.New(errorx.CodeInvalidParam, "时长必须为正数")
		}
		meeting.DayOfWeek = req.DayOfWeek
		meeting.TimeOfDay = req.TimeOfDay
		meeting.DurationMin = req.DurationMin
	} else {
		startsAt, err := time.ParseInLocation(timeLayout, req.StartsAt, time.Local)
		if err != nil {
			return nil, errorx.New(errorx.CodeInvalidParam, "开始时间格式错误")
		}
		endsAt, err := time.ParseInLocation(timeLayout, req.EndsAt, time.Local)
		if err != nil {
			return nil, errorx.New(errorx.CodeInvalidParam, "结束时间格式错误")
		}
		if !endsAt.After(startsAt) {
			return nil, errorx.New(errorx.CodeInvalidParam, "结束时间必须晚于开始时间")
		}
		meeting.StartsAt = sql.NullTime{Time: startsAt, Valid: true}
		meeting.EndsAt = sql.NullTime{Time: endsAt, Valid: true}
	}

	err := s.repos.Transaction(func(txRepos *repository.Repositories) error {
		if err := txRepos.Meeting.Create(&meeting); err != nil {
			zap.L().Error("创建聚会失败", zap.Error(err))
			return errorx.ErrServerBusy
		}
		if !meeting.IsTemplate {
			host := model.Participant{
				Uuid:         fmt.Sprintf("P%s", random.GetNowAndLenRandomString(11)),
				MeetingUuid:  meeting.Uuid,
				UserId:       hostId,
				LabelOrdinal: 1,
			}
			if err := txRepos.Participant.Create(&host); err != nil {
				zap.L().Error("登记发起人失败", zap.Error(err))
				return errorx.ErrServerBusy
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	count := int64(0)
	if !meeting.IsTemplate {
		count = 1
	}
	return toRespond(&meeting, count, time.Now()), nil
}

// GetDetail 查询聚会详情（cache-aside，短 TTL 容忍轻微滞后）
func (s *meetingService) GetDetail(meetingUuid string) (*respond.MeetingRespond, error) {
	key := "meeting_info_" + meetingUuid
	if cached, err := s.cache.Get(context.Background(), key); err == nil && cached != "" {
		var rsp respond.MeetingRespond
		if err := json.Unmarshal([]byte(cached), &rsp); err == nil {
			return &rsp, nil
		}
	}

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return nil, err
	}
	count, err := s.repos.Participant.CountActive(meetingUuid)
	if err != nil {
		zap.L().Error("统计有效人数失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	rsp := toRespond(meeting, count, time.Now())

	s.cache.SubmitTask(func() {
		if data, err := json.Marshal(rsp); err == nil {
			_ = s.cache.Set(context.Background(), key, string(data), time.Minute*constants.REDIS_TIMEOUT)
		}
	})
	return rsp, nil
}

// ListByHost 查询发起人名下的聚会和模板
func (s *meetingService) ListByHost(hostId string) ([]respond.MeetingRespond, error) {
	meetings, err := s.repos.Meeting.FindByHostId(hostId)
	if err != nil {
		zap.L().Error("查询发起人聚会失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	now := time.Now()
	list := make([]respond.MeetingRespond, 0, len(meetings))
	for i := range meetings {
		count, err := s.repos.Participant.CountActive(meetings[i].Uuid)
		if err != nil {
			zap.L().Warn("统计有效人数失败", zap.Error(err))
			count = 0
		}
		list = append(list, *toRespond(&meetings[i], count, now))
	}
	return list, nil
}

// UpdateDetails 修改聚会详情
// 只有发起人或管理员可操作；人数上限不能低于当前已报名人数
func (s *meetingService) UpdateDetails(meetingUuid, actorId string, isAdmin bool, req request.UpdateMeetingRequest) error {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if err := requireHost(meeting, actorId, isAdmin); err != nil {
		return err
	}
	switch meeting.EffectiveStatus(time.Now()) {
	case meeting_status_enum.CANCELLED:
		return errorx.New(errorx.CodeInvalidState, "聚会已取消，不能修改")
	case meeting_status_enum.CLOSED:
		return errorx.New(errorx.CodeInvalidState, "聚会已结束，不能修改")
	}

	if req.Title != "" {
		meeting.Title = req.Title
	}
	if req.Location != "" {
		meeting.Location = req.Location
	}
	if req.Purpose != nil {
		meeting.Purpose = *req.Purpose
	}
	if req.CoverUrl != "" {
		meeting.CoverUrl = req.CoverUrl
	}
	if req.MaxParticipants != nil {
		count, err := s.repos.Participant.CountActive(meetingUuid)
		if err != nil {
			zap.L().Error("统计有效人数失败", zap.Error(err))
			return errorx.ErrServerBusy
		}
		if int64(*req.MaxParticipants) < count {
			return errorx.New(errorx.CodeInvalidParam, "人数上限不能低于当前已报名人数")
		}
		meeting.MaxParticipants = *req.MaxParticipants
	}

	if err := s.repos.Meeting.Update(meeting); err != nil {
		zap.L().Error("更新聚会失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	s.invalidateCache(meetingUuid)
	return nil
}

// Confirm 成团：招募中 -> 已成团
// 条件更新返回 0 行说明状态已被并发迁移，直接拒绝
func (s *meetingService) Confirm(meetingUuid, actorId string, isAdmin bool) error {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if meeting.IsTemplate {
		return errorx.New(errorx.CodeInvalidState, "周期模板没有状态机")
	}
	if err := requireHost(meeting, actorId, isAdmin); err != nil {
		return err
	}
	if meeting.Ended(time.Now()) {
		return errorx.New(errorx.CodeInvalidState, "聚会已结束")
	}

	rows, err := s.repos.Meeting.UpdateStatusFrom(meetingUuid,
		meeting_status_enum.RECRUITING, meeting_status_enum.CONFIRMED)
	if err != nil {
		zap.L().Error("成团状态迁移失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	if rows == 0 {
		return errorx.New(errorx.CodeInvalidState, "只有招募中的聚会可以成团")
	}

	s.invalidateCache(meetingUuid)
	s.emit(notify.Event{
		Kind:        notification_kind_enum.CONFIRMED,
		MeetingUuid: meetingUuid,
		ActorId:     actorId,
		Body:        "「" + meeting.Title + "」已成团",
	})
	return nil
}

// Unconfirm 撤销成团：已成团 -> 招募中
func (s *meetingService) Unconfirm(meetingUuid, actorId string, isAdmin bool) error {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if meeting.IsTemplate {
		return errorx.New(errorx.CodeInvalidState, "周期模板没有状态机")
	}
	if err := requireHost(meeting, actorId, isAdmin); err != nil {
		return err
	}
	if meeting.Ended(time.Now()) {
		return errorx.New(errorx.CodeInvalidState, "聚会已结束")
	}

	rows, err := s.repos.Meeting.UpdateStatusFrom(meetingUuid,
		meeting_status_enum.CONFIRMED, meeting_status_enum.RECRUITING)
	if err != nil {
		zap.L().Error("撤销成团状态迁移失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	if rows == 0 {
		return errorx.New(errorx.CodeInvalidState, "只有已成团的聚会可以撤销成团")
	}

	s.invalidateCache(meetingUuid)
	return nil
}

// Cancel 取消聚会：招募中/已成团 -> 已取消
// 重复取消幂等返回成功
func (s *meetingService) Cancel(meetingUuid, actorId string, isAdmin bool) error {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if meeting.IsTemplate {
		return errorx.New(errorx.CodeInvalidState, "周期模板没有状态机")
	}
	if err := requireHost(meeting, actorId, isAdmin); err != nil {
		return err
	}
	if meeting.Status == meeting_status_enum.CANCELLED {
		return nil
	}
	if meeting.Ended(time.Now()) {
		return errorx.New(errorx.CodeInvalidState, "聚会已结束，不能取消")
	}

	rows, err := s.repos.Meeting.UpdateStatusFrom(meetingUuid,
		meeting.Status, meeting_status_enum.CANCELLED)
	if err != nil {
		zap.L().Error("取消状态迁移失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	if rows == 0 {
		// 状态被并发迁移，重新读一次：已是取消则幂等成功
		fresh, ferr := s.findMeeting(meetingUuid)
		if ferr == nil && fresh.Status == meeting_status_enum.CANCELLED {
			return nil
		}
		return errorx.ErrConflict
	}

	s.invalidateCache(meetingUuid)
	s.emit(notify.Event{
		Kind:        notification_kind_enum.CANCELLED,
		MeetingUuid: meetingUuid,
		ActorId:     actorId,
		Body:        "「" + meeting.Title + "」已取消",
	})
	return nil
}

// AutoCancelIfUndersubscribed 开场前窗口内人数不足则自动取消
// 由外部调度器触发，满足条件才迁移状态，返回是否真的取消了
func (s *meetingService) AutoCancelIfUndersubscribed(meetingUuid string) (bool, error) {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return false, err
	}
	if meeting.IsTemplate {
		return false, errorx.New(errorx.CodeInvalidState, "周期模板没有状态机")
	}

	now := time.Now()
	if meeting.EffectiveStatus(now) != meeting_status_enum.RECRUITING {
		return false, nil
	}
	if !meeting.StartsAt.Valid {
		return false, nil
	}
	window := time.Duration(s.conf.AutoCancelWindowMins) * time.Minute
	if now.Before(meeting.StartsAt.Time.Add(-window)) {
		// 还没进入自动取消窗口
		return false, nil
	}

	count, err := s.repos.Participant.CountActive(meetingUuid)
	if err != nil {
		zap.L().Error("统计有效人数失败", zap.Error(err))
		return false, errorx.ErrServerBusy
	}
	if count >= int64(s.conf.MinHeadcount) {
		return false, nil
	}

	rows, err := s.repos.Meeting.UpdateStatusFrom(meetingUuid,
		meeting_status_enum.RECRUITING, meeting_status_enum.CANCELLED)
	if err != nil {
		zap.L().Error("自动取消状态迁移失败", zap.Error(err))
		return false, errorx.ErrServerBusy
	}
	if rows == 0 {
		return false, nil
	}

	s.invalidateCache(meetingUuid)
	s.emit(notify.Event{
		Kind:        notification_kind_enum.CANCELLED,
		MeetingUuid: meetingUuid,
		ActorId:     meeting.HostId,
		Body:        "「" + meeting.Title + "」因人数不足已自动取消",
	})
	return true, nil
}

// isoWeekStart 返回 ISO 周的周一零点
func isoWeekStart(isoYear, isoWeek int) time.Time {
	// 1月4日恒在 ISO 第 1 周
	jan4 := time.Date(isoYear, 1, 4, 0, 0, 0, 0, time.Local)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	firstMonday := jan4.AddDate(0, 0, 1-weekday)
	return firstMonday.AddDate(0, 0, (isoWeek-1)*7)
}

// MaterializeInstance 把周期模板物化成某一 ISO 周的具体场次
// 同一 (模板, 周) 重复调用幂等返回已存在的场次，
// 并发物化靠唯一索引兜底，冲突后改查已存在的行
func (s *meetingService) MaterializeInstance(templateUuid, actorId string, isAdmin bool,
	req request.MaterializeInstanceRequest) (*respond.MeetingRespond, error) {
	template, err := s.findMeeting(templateUuid)
	if err != nil {
		return nil, err
	}
	if !template.IsTemplate {
		return nil, errorx.New(errorx.CodeInvalidState, "该聚会不是周期模板")
	}
	if err := requireHost(template, actorId, isAdmin); err != nil {
		return nil, err
	}

	weekKey := fmt.Sprintf("%d-W%02d", req.IsoYear, req.IsoWeek)
	if existing, err := s.repos.Meeting.FindInstance(templateUuid, weekKey); err == nil {
		count, _ := s.repos.Participant.CountActive(existing.Uuid)
		return toRespond(existing, count, time.Now()), nil
	} else if !errorx.IsNotFound(err) {
		zap.L().Error("查询物化场次失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	// ISO 周从周一起算，星期字段 0=周日 落在该周末尾
	dayOffset := int(template.DayOfWeek) - 1
	if template.DayOfWeek == 0 {
		dayOffset = 6
	}
	startOfDay := isoWeekStart(req.IsoYear, req.IsoWeek).AddDate(0, 0, dayOffset)
	timeOfDay, err := time.Parse("15:04", template.TimeOfDay)
	if err != nil {
		zap.L().Error("模板开始时刻非法", zap.Error(err), zap.String("template_id", templateUuid))
		return nil, errorx.ErrServerBusy
	}
	startsAt := startOfDay.Add(time.Duration(timeOfDay.Hour())*time.Hour +
		time.Duration(timeOfDay.Minute())*time.Minute)
	endsAt := startsAt.Add(time.Duration(template.DurationMin) * time.Minute)

	instance := model.Meeting{
		Uuid:            fmt.Sprintf("M%s", random.GetNowAndLenRandomString(11)),
		HostId:          template.HostId,
		Title:           template.Title,
		Location:        template.Location,
		Purpose:         template.Purpose,
		MaxParticipants: template.MaxParticipants,
		Status:          meeting_status_enum.RECRUITING,
		StartsAt:        sql.NullTime{Time: startsAt, Valid: true},
		EndsAt:          sql.NullTime{Time: endsAt, Valid: true},
		TemplateUuid:    sql.NullString{String: templateUuid, Valid: true},
		WeekKey:         sql.NullString{String: weekKey, Valid: true},
		CoverUrl:        template.CoverUrl,
	}

	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		if err := txRepos.Meeting.Create(&instance); err != nil {
			return err
		}
		host := model.Participant{
			Uuid:         fmt.Sprintf("P%s", random.GetNowAndLenRandomString(11)),
			MeetingUuid:  instance.Uuid,
			UserId:       template.HostId,
			LabelOrdinal: 1,
		}
		return txRepos.Participant.Create(&host)
	})
	if err != nil {
		if errorx.IsCode(err, errorx.CodeConflict) {
			// 并发物化：另一个调用已经建好，改查已存在的行
			if existing, ferr := s.repos.Meeting.FindInstance(templateUuid, weekKey); ferr == nil {
				count, _ := s.repos.Participant.CountActive(existing.Uuid)
				return toRespond(existing, count, time.Now()), nil
			}
		}
		zap.L().Error("物化场次失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	return toRespond(&instance, 1, time.Now()), nil
}

// Delete 解散聚会
// 聚会本体、报名记录、聊天消息和已读回执在同一事务内原子清理
func (s *meetingService) Delete(meetingUuid, actorId string, isAdmin bool) error {
	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.findMeeting(meetingUuid)
	if err != nil {
		return err
	}
	if err := requireHost(meeting, actorId, isAdmin); err != nil {
		return err
	}

	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		if err := txRepos.ReadReceipt.DeleteByMeetingUuid(meetingUuid); err != nil {
			return err
		}
		if err := txRepos.Message.DeleteByMeetingUuid(meetingUuid); err != nil {
			return err
		}
		if err := txRepos.Participant.DeleteByMeetingUuid(meetingUuid); err != nil {
			return err
		}
		return txRepos.Meeting.DeleteByUuid(meetingUuid)
	})
	if err != nil {
		zap.L().Error("解散聚会失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	s.invalidateCache(meetingUuid)
	return nil
}
