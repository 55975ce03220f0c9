package meeting_test

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup_hub_server/internal/config"
	"meetup_hub_server/internal/dao/mysql/repository/memrepo"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/internal/service/meeting"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
	"meetup_hub_server/pkg/meetinglock"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingEmitter) Emit(event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) last() (notify.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return notify.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func timeStr(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func TestCreateOneShotRegistersHost(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title:           "周五羽毛球",
		Location:        "体育馆 3 号场",
		MaxParticipants: 6,
		StartsAt:        timeStr(time.Now().Add(24 * time.Hour)),
		EndsAt:          timeStr(time.Now().Add(26 * time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, meeting_status_enum.RECRUITING, rsp.Status)
	assert.Equal(t, int64(1), rsp.ParticipantCount)

	// 发起人自动占下 1 号位
	p, err := repos.Participant.FindActive(rsp.MeetingId, "U_host")
	require.NoError(t, err)
	assert.Equal(t, 1, p.LabelOrdinal)
}

func TestCreateRejectsInvertedTimes(t *testing.T) {
	svc := meeting.NewMeetingService(memrepo.NewRepositories(), myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	_, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title:           "时间倒置",
		Location:        "x",
		MaxParticipants: 4,
		StartsAt:        timeStr(time.Now().Add(4 * time.Hour)),
		EndsAt:          timeStr(time.Now().Add(2 * time.Hour)),
	})
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidParam))
}

func TestCreateTemplateHasNoRoster(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title:           "每周三桌游",
		Location:        "咖啡馆",
		MaxParticipants: 8,
		IsTemplate:      true,
		DayOfWeek:       3,
		TimeOfDay:       "19:30",
		DurationMin:     120,
	})
	require.NoError(t, err)
	assert.True(t, rsp.IsTemplate)
	assert.Equal(t, int64(0), rsp.ParticipantCount)

	count, err := repos.Participant.CountActive(rsp.MeetingId)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestConfirmStateMachine(t *testing.T) {
	repos := memrepo.NewRepositories()
	emitter := &recordingEmitter{}
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), emitter, config.MeetingConfig{})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "确认流转", Location: "x", MaxParticipants: 4,
		StartsAt: timeStr(time.Now().Add(24 * time.Hour)),
		EndsAt:   timeStr(time.Now().Add(26 * time.Hour)),
	})
	require.NoError(t, err)

	// 非发起人无权成团
	err = svc.Confirm(rsp.MeetingId, "U_other", false)
	assert.True(t, errorx.IsCode(err, errorx.CodePermissionDenied))

	require.NoError(t, svc.Confirm(rsp.MeetingId, "U_host", false))
	event, ok := emitter.last()
	require.True(t, ok)
	assert.Equal(t, notification_kind_enum.CONFIRMED, event.Kind)

	// 已成团不能重复成团
	err = svc.Confirm(rsp.MeetingId, "U_host", false)
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidState))

	// 撤销成团回到招募中
	require.NoError(t, svc.Unconfirm(rsp.MeetingId, "U_host", false))
	fresh, err := repos.Meeting.FindByUuid(rsp.MeetingId)
	require.NoError(t, err)
	assert.Equal(t, meeting_status_enum.RECRUITING, fresh.Status)
}

func TestCancelIdempotent(t *testing.T) {
	repos := memrepo.NewRepositories()
	emitter := &recordingEmitter{}
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), emitter, config.MeetingConfig{})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "取消幂等", Location: "x", MaxParticipants: 4,
		StartsAt: timeStr(time.Now().Add(24 * time.Hour)),
		EndsAt:   timeStr(time.Now().Add(26 * time.Hour)),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(rsp.MeetingId, "U_host", false))
	event, ok := emitter.last()
	require.True(t, ok)
	assert.Equal(t, notification_kind_enum.CANCELLED, event.Kind)

	// 重复取消不报错也不再发事件
	before := len(emitter.events)
	require.NoError(t, svc.Cancel(rsp.MeetingId, "U_host", false))
	assert.Equal(t, before, len(emitter.events))
}

func TestUpdateMaxBelowCurrentRejected(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "缩容", Location: "x", MaxParticipants: 5,
		StartsAt: timeStr(time.Now().Add(24 * time.Hour)),
		EndsAt:   timeStr(time.Now().Add(26 * time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, repos.Participant.Create(&model.Participant{
		Uuid: "P_U2", MeetingUuid: rsp.MeetingId, UserId: "U2", LabelOrdinal: 2,
	}))

	one := 1
	err = svc.UpdateDetails(rsp.MeetingId, "U_host", false,
		request.UpdateMeetingRequest{MaxParticipants: &one})
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidParam))

	three := 3
	require.NoError(t, svc.UpdateDetails(rsp.MeetingId, "U_host", false,
		request.UpdateMeetingRequest{MaxParticipants: &three}))
}

func TestAutoCancelUndersubscribed(t *testing.T) {
	repos := memrepo.NewRepositories()
	emitter := &recordingEmitter{}
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), emitter,
		config.MeetingConfig{MinHeadcount: 3, AutoCancelWindowMins: 60})

	// 距开始 30 分钟，在 60 分钟窗口内，只有发起人 1 人
	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "人数不足", Location: "x", MaxParticipants: 6,
		StartsAt: timeStr(time.Now().Add(30 * time.Minute)),
		EndsAt:   timeStr(time.Now().Add(2 * time.Hour)),
	})
	require.NoError(t, err)

	cancelled, err := svc.AutoCancelIfUndersubscribed(rsp.MeetingId)
	require.NoError(t, err)
	assert.True(t, cancelled)

	fresh, err := repos.Meeting.FindByUuid(rsp.MeetingId)
	require.NoError(t, err)
	assert.Equal(t, meeting_status_enum.CANCELLED, fresh.Status)
	event, ok := emitter.last()
	require.True(t, ok)
	assert.Equal(t, notification_kind_enum.CANCELLED, event.Kind)
}

func TestAutoCancelOutsideWindowNoop(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{},
		config.MeetingConfig{MinHeadcount: 3, AutoCancelWindowMins: 60})

	// 距开始还有 3 小时，不在窗口内
	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "还早", Location: "x", MaxParticipants: 6,
		StartsAt: timeStr(time.Now().Add(3 * time.Hour)),
		EndsAt:   timeStr(time.Now().Add(5 * time.Hour)),
	})
	require.NoError(t, err)

	cancelled, err := svc.AutoCancelIfUndersubscribed(rsp.MeetingId)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestAutoCancelEnoughHeadcountNoop(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{},
		config.MeetingConfig{MinHeadcount: 2, AutoCancelWindowMins: 60})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "人数够了", Location: "x", MaxParticipants: 6,
		StartsAt: timeStr(time.Now().Add(30 * time.Minute)),
		EndsAt:   timeStr(time.Now().Add(2 * time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, repos.Participant.Create(&model.Participant{
		Uuid: "P_U2", MeetingUuid: rsp.MeetingId, UserId: "U2", LabelOrdinal: 2,
	}))

	cancelled, err := svc.AutoCancelIfUndersubscribed(rsp.MeetingId)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestMaterializeInstance(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	template, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "每周三桌游", Location: "咖啡馆", MaxParticipants: 8,
		IsTemplate: true, DayOfWeek: 3, TimeOfDay: "19:30", DurationMin: 120,
	})
	require.NoError(t, err)

	rsp, err := svc.MaterializeInstance(template.MeetingId, "U_host", false,
		request.MaterializeInstanceRequest{IsoYear: 2026, IsoWeek: 37})
	require.NoError(t, err)
	assert.False(t, rsp.IsTemplate)
	// 2026 年 ISO 第 37 周的周三是 9 月 9 日
	assert.Equal(t, "2026-09-09 19:30:00", rsp.StartsAt)
	assert.Equal(t, "2026-09-09 21:30:00", rsp.EndsAt)
	assert.Equal(t, int64(1), rsp.ParticipantCount)

	// 发起人自动进入场次名单
	_, err = repos.Participant.FindActive(rsp.MeetingId, "U_host")
	require.NoError(t, err)
}

func TestMaterializeInstanceIdempotent(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	template, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "每周日晨跑", Location: "公园", MaxParticipants: 20,
		IsTemplate: true, DayOfWeek: 0, TimeOfDay: "07:00", DurationMin: 60,
	})
	require.NoError(t, err)

	first, err := svc.MaterializeInstance(template.MeetingId, "U_host", false,
		request.MaterializeInstanceRequest{IsoYear: 2026, IsoWeek: 40})
	require.NoError(t, err)

	second, err := svc.MaterializeInstance(template.MeetingId, "U_host", false,
		request.MaterializeInstanceRequest{IsoYear: 2026, IsoWeek: 40})
	require.NoError(t, err)
	assert.Equal(t, first.MeetingId, second.MeetingId)
}

func TestMaterializeNonTemplateRejected(t *testing.T) {
	svcRepos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(svcRepos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	oneShot, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "普通聚会", Location: "x", MaxParticipants: 4,
		StartsAt: timeStr(time.Now().Add(24 * time.Hour)),
		EndsAt:   timeStr(time.Now().Add(26 * time.Hour)),
	})
	require.NoError(t, err)

	_, err = svc.MaterializeInstance(oneShot.MeetingId, "U_host", false,
		request.MaterializeInstanceRequest{IsoYear: 2026, IsoWeek: 40})
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidState))
}

func TestDeleteCascades(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	rsp, err := svc.Create("U_host", request.CreateMeetingRequest{
		Title: "待解散", Location: "x", MaxParticipants: 4,
		StartsAt: timeStr(time.Now().Add(24 * time.Hour)),
		EndsAt:   timeStr(time.Now().Add(26 * time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, repos.Message.Create(&model.ChatMessage{
		Uuid: 1, MeetingUuid: rsp.MeetingId, Sequence: 1, SenderId: "U_host", Content: "hi",
	}))
	require.NoError(t, repos.ReadReceipt.CreateIgnore([]model.ReadReceipt{
		{MeetingUuid: rsp.MeetingId, Sequence: 1, UserId: "U_host"},
	}))

	require.NoError(t, svc.Delete(rsp.MeetingId, "U_host", false))

	_, err = repos.Meeting.FindByUuid(rsp.MeetingId)
	assert.True(t, errorx.IsNotFound(err))
	count, err := repos.Participant.CountActive(rsp.MeetingId)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	messages, err := repos.Message.FindAfterSequence(rsp.MeetingId, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestGetDetailDerivesClosedStatus(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := meeting.NewMeetingService(repos, myredis.NewMemoryCache(),
		meetinglock.NewRegistry(), &recordingEmitter{}, config.MeetingConfig{})

	// 直接落一条已过期的聚会，绕过 Create 的时间校验
	require.NoError(t, repos.Meeting.Create(&model.Meeting{
		Uuid: "M_past", HostId: "U_host", Title: "上周的聚会", Location: "x",
		MaxParticipants: 4, Status: meeting_status_enum.CONFIRMED,
		StartsAt: sql.NullTime{Time: time.Now().Add(-3 * time.Hour), Valid: true},
		EndsAt:   sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true},
	}))

	rsp, err := svc.GetDetail("M_past")
	require.NoError(t, err)
	assert.Equal(t, meeting_status_enum.CLOSED, rsp.Status)
}
