package roster_test

import (
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/internal/dao/mysql/repository/memrepo"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/internal/service/roster"
	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
	"meetup_hub_server/pkg/meetinglock"
)

// recordingEmitter 收集分发出去的领域事件
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

func (r *recordingEmitter) kinds() []int8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int8, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func seedMeeting(t *testing.T, repos *repository.Repositories, uuid, hostId string, max int, status int8, startsAt, endsAt time.Time) {
	t.Helper()
	meeting := &model.Meeting{
		Uuid:            uuid,
		HostId:          hostId,
		Title:           "每周桌游",
		Location:        "线下咖啡馆",
		MaxParticipants: max,
		Status:          status,
		StartsAt:        sql.NullTime{Time: startsAt, Valid: true},
		EndsAt:          sql.NullTime{Time: endsAt, Valid: true},
	}
	require.NoError(t, repos.Meeting.Create(meeting))
	require.NoError(t, repos.Participant.Create(&model.Participant{
		Uuid: "P_" + hostId, MeetingUuid: uuid, UserId: hostId, LabelOrdinal: 1,
	}))
}

func TestJoinAssignsSequentialLabels(t *testing.T) {
	repos := memrepo.NewRepositories()
	emitter := &recordingEmitter{}
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), emitter)
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	first, err := svc.Join("M1", "U2")
	require.NoError(t, err)
	assert.Equal(t, "Participant2", first.Label)

	second, err := svc.Join("M1", "U3")
	require.NoError(t, err)
	assert.Equal(t, "Participant3", second.Label)

	assert.Equal(t, []int8{notification_kind_enum.JOINED, notification_kind_enum.JOINED}, emitter.kinds())
}

func TestJoinDuplicateRejected(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	_, err := svc.Join("M1", "U2")
	require.NoError(t, err)
	_, err = svc.Join("M1", "U2")
	assert.True(t, errorx.IsCode(err, errorx.CodeAlreadyJoined))
}

func TestJoinCapacityEnforcedUnderConcurrency(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 3, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	var wg sync.WaitGroup
	var okCount int64
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := svc.Join("M1", fmt.Sprintf("U%d", n+100)); err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	// 上限 3 人，发起人占 1 个名额，并发报名只会成功 2 个
	assert.Equal(t, int64(2), okCount)
	count, err := repos.Participant.CountActive("M1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestJoinRejectedWhenNotRecruiting(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.CONFIRMED,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	_, err := svc.Join("M1", "U2")
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidState))
}

func TestJoinRejectedWhenEnded(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	// 已过结束时间的聚会读取侧状态为 CLOSED
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(-3*time.Hour), time.Now().Add(-time.Hour))

	_, err := svc.Join("M1", "U2")
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidState))
}

func TestRejoinGetsNewOrdinal(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	first, err := svc.Join("M1", "U2")
	require.NoError(t, err)
	assert.Equal(t, "Participant2", first.Label)
	_, err = svc.Join("M1", "U3")
	require.NoError(t, err)

	require.NoError(t, svc.Leave("M1", "U2"))

	// 退出后再报名：序号取历史最大值+1，不回收退出者的序号
	again, err := svc.Join("M1", "U2")
	require.NoError(t, err)
	assert.Equal(t, "Participant4", again.Label)
}

func TestOrdinalNeverRecycledAfterLeave(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	second, err := svc.Join("M1", "U2")
	require.NoError(t, err)
	assert.Equal(t, "Participant2", second.Label)

	// U2 退出后新成员不应继承 Participant2，否则历史消息的发送者标签会指向新人
	require.NoError(t, svc.Leave("M1", "U2"))
	newcomer, err := svc.Join("M1", "U3")
	require.NoError(t, err)
	assert.Equal(t, "Participant3", newcomer.Label)
}

func TestLeaveHostForbidden(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	err := svc.Leave("M1", "U_host")
	assert.True(t, errorx.IsCode(err, errorx.CodePermissionDenied))
}

func TestLeaveNotAParticipant(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	err := svc.Leave("M1", "U_stranger")
	assert.True(t, errorx.IsCode(err, errorx.CodeNotAParticipant))
}

func TestMarkAttendance(t *testing.T) {
	repos := memrepo.NewRepositories()
	emitter := &recordingEmitter{}
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), emitter)
	// 已结束的聚会才能登记出勤
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.CONFIRMED,
		time.Now().Add(-3*time.Hour), time.Now().Add(-time.Hour))
	require.NoError(t, repos.Participant.Create(&model.Participant{
		Uuid: "P_U2", MeetingUuid: "M1", UserId: "U2", LabelOrdinal: 2,
	}))

	attended := true
	req := request.MarkAttendanceRequest{UserId: "U2", Attended: &attended}

	// 非发起人无权操作
	err := svc.MarkAttendance("M1", "U2", false, req)
	assert.True(t, errorx.IsCode(err, errorx.CodePermissionDenied))

	require.NoError(t, svc.MarkAttendance("M1", "U_host", false, req))

	p, err := repos.Participant.FindActive("M1", "U2")
	require.NoError(t, err)
	assert.True(t, p.Attended.Valid)
	assert.True(t, p.Attended.Bool)

	// 重复标记幂等，可以改写
	notAttended := false
	require.NoError(t, svc.MarkAttendance("M1", "U_host", false,
		request.MarkAttendanceRequest{UserId: "U2", Attended: &notAttended}))
	p, err = repos.Participant.FindActive("M1", "U2")
	require.NoError(t, err)
	assert.False(t, p.Attended.Bool)
}

func TestMarkAttendanceBeforeEndRejected(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.CONFIRMED,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	attended := true
	err := svc.MarkAttendance("M1", "U_host", false,
		request.MarkAttendanceRequest{UserId: "U_host", Attended: &attended})
	assert.True(t, errorx.IsCode(err, errorx.CodeNotYetEnded))
}

func TestListParticipantsRequiresMembership(t *testing.T) {
	repos := memrepo.NewRepositories()
	svc := roster.NewRosterService(repos, myredis.NewMemoryCache(), meetinglock.NewRegistry(), &recordingEmitter{})
	seedMeeting(t, repos, "M1", "U_host", 10, meeting_status_enum.RECRUITING,
		time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	_, err := svc.ListParticipants("M1", "U_stranger", false)
	assert.True(t, errorx.IsCode(err, errorx.CodeNotAParticipant))

	// 管理员不受成员限制
	list, err := svc.ListParticipants("M1", "U_admin", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Participant1", list[0].Label)
	assert.True(t, list[0].IsHost)
}
