package notify_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/internal/dao/mysql/repository/memrepo"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
)

// recordingPusher 记录推送调用，failFor 中的用户推送失败
type recordingPusher struct {
	mu      sync.Mutex
	pushed  []string
	failFor map[string]bool
}

func (p *recordingPusher) PushToDevice(userId, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[userId] {
		return errors.New("device unreachable")
	}
	p.pushed = append(p.pushed, userId)
	return nil
}

func seedRoster(t *testing.T, repos *repository.Repositories, meetingUuid, hostId string, members ...string) {
	t.Helper()
	require.NoError(t, repos.Meeting.Create(&model.Meeting{
		Uuid: meetingUuid, HostId: hostId, Title: "通知测试", Location: "x",
		MaxParticipants: 10, Status: meeting_status_enum.RECRUITING,
	}))
	all := append([]string{hostId}, members...)
	for i, userId := range all {
		require.NoError(t, repos.Participant.Create(&model.Participant{
			Uuid: "P_" + userId, MeetingUuid: meetingUuid, UserId: userId, LabelOrdinal: i + 1,
		}))
	}
}

func TestEmitJoinedNotifiesHostOnly(t *testing.T) {
	repos := memrepo.NewRepositories()
	pusher := &recordingPusher{}
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), pusher)
	seedRoster(t, repos, "M1", "U_host", "U2", "U3")

	require.NoError(t, d.Emit(notify.Event{
		Kind: notification_kind_enum.JOINED, MeetingUuid: "M1",
		ActorId: "U2", RelatedId: "U2", Body: "Participant2 报名了",
	}))

	hostList, err := d.List("U_host", 0)
	require.NoError(t, err)
	require.Len(t, hostList.Items, 1)
	assert.Equal(t, int64(1), hostList.UnreadCount)

	otherList, err := d.List("U3", 0)
	require.NoError(t, err)
	assert.Empty(t, otherList.Items)
	assert.Equal(t, []string{"U_host"}, pusher.pushed)
}

func TestEmitHostActionNoSelfNotification(t *testing.T) {
	repos := memrepo.NewRepositories()
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), &recordingPusher{})
	seedRoster(t, repos, "M1", "U_host")

	// 发起人自己报名场次不给自己发通知
	require.NoError(t, d.Emit(notify.Event{
		Kind: notification_kind_enum.JOINED, MeetingUuid: "M1",
		ActorId: "U_host", RelatedId: "U_host",
	}))

	list, err := d.List("U_host", 0)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestEmitCancelledFansOutExceptActor(t *testing.T) {
	repos := memrepo.NewRepositories()
	pusher := &recordingPusher{}
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), pusher)
	seedRoster(t, repos, "M1", "U_host", "U2", "U3")

	require.NoError(t, d.Emit(notify.Event{
		Kind: notification_kind_enum.CANCELLED, MeetingUuid: "M1", ActorId: "U_host",
	}))

	for _, userId := range []string{"U2", "U3"} {
		list, err := d.List(userId, 0)
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		// 空文案兜底到类型默认标题
		assert.Equal(t, notification_kind_enum.Title(notification_kind_enum.CANCELLED), list.Items[0].Body)
	}
	hostList, err := d.List("U_host", 0)
	require.NoError(t, err)
	assert.Empty(t, hostList.Items)
}

func TestEmitAttendanceMarkedNotifiesSubject(t *testing.T) {
	repos := memrepo.NewRepositories()
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), &recordingPusher{})
	seedRoster(t, repos, "M1", "U_host", "U2")

	require.NoError(t, d.Emit(notify.Event{
		Kind: notification_kind_enum.ATTENDANCE_MARKED, MeetingUuid: "M1",
		ActorId: "U_host", RelatedId: "U2",
	}))

	list, err := d.List("U2", 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, notification_kind_enum.ATTENDANCE_MARKED, list.Items[0].Kind)
}

func TestEmitPushFailureDoesNotFailEmit(t *testing.T) {
	repos := memrepo.NewRepositories()
	pusher := &recordingPusher{failFor: map[string]bool{"U2": true}}
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), pusher)
	seedRoster(t, repos, "M1", "U_host", "U2", "U3")

	require.NoError(t, d.Emit(notify.Event{
		Kind: notification_kind_enum.CONFIRMED, MeetingUuid: "M1", ActorId: "U_host",
	}))

	// U2 推送失败，但通知行照常落库
	list, err := d.List("U2", 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, []string{"U3"}, pusher.pushed)
}

func TestMarkReadOwnershipAndIdempotency(t *testing.T) {
	repos := memrepo.NewRepositories()
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), &recordingPusher{})
	seedRoster(t, repos, "M1", "U_host", "U2")

	require.NoError(t, d.Emit(notify.Event{
		Kind: notification_kind_enum.JOINED, MeetingUuid: "M1", ActorId: "U2",
	}))
	list, err := d.List("U_host", 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	uuid := list.Items[0].NotificationId

	// 别人不能标记
	err = d.MarkRead("U2", uuid)
	assert.True(t, errorx.IsCode(err, errorx.CodePermissionDenied))

	require.NoError(t, d.MarkRead("U_host", uuid))
	require.NoError(t, d.MarkRead("U_host", uuid)) // 重复标记幂等

	list, err = d.List("U_host", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.UnreadCount)
	assert.True(t, list.Items[0].Read)
}

func TestMarkAllReadAndDelete(t *testing.T) {
	repos := memrepo.NewRepositories()
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), &recordingPusher{})
	seedRoster(t, repos, "M1", "U_host", "U2")

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Emit(notify.Event{
			Kind: notification_kind_enum.JOINED, MeetingUuid: "M1", ActorId: "U2",
		}))
	}

	require.NoError(t, d.MarkAllRead("U_host"))
	list, err := d.List("U_host", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.UnreadCount)

	uuid := list.Items[0].NotificationId
	err = d.Delete("U2", uuid)
	assert.True(t, errorx.IsCode(err, errorx.CodePermissionDenied))
	require.NoError(t, d.Delete("U_host", uuid))

	list, err = d.List("U_host", 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
}

func TestListLimit(t *testing.T) {
	repos := memrepo.NewRepositories()
	d := notify.NewDispatcher(repos, myredis.NewMemoryCache(), &recordingPusher{})
	seedRoster(t, repos, "M1", "U_host", "U2")

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Emit(notify.Event{
			Kind: notification_kind_enum.JOINED, MeetingUuid: "M1", ActorId: "U2",
		}))
	}

	list, err := d.List("U_host", 2)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, int64(5), list.UnreadCount)
}
