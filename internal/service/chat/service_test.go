package chat_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup_hub_server/internal/dao/mysql/repository"
	"meetup_hub_server/internal/dao/mysql/repository/memrepo"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/dto/respond"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/internal/service/chat"
	"meetup_hub_server/internal/service/fallback"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
	"meetup_hub_server/pkg/enum/message/message_type_enum"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
	"meetup_hub_server/pkg/meetinglock"
	"meetup_hub_server/pkg/util/snowflake"
)

func TestMain(m *testing.M) {
	snowflake.Init(1)
	m.Run()
}

// stubBroker 仅记录临时广播的空实现
type stubBroker struct {
	mu         sync.Mutex
	broadcasts [][]byte
}

func (b *stubBroker) Publish(ctx context.Context, meetingUuid string, msg []byte) error { return nil }
func (b *stubBroker) RegisterClient(client *chat.UserConn)          {}
func (b *stubBroker) UnregisterClient(client *chat.UserConn)        {}
func (b *stubBroker) GetClient(connKey string) *chat.UserConn       { return nil }
func (b *stubBroker) BroadcastToMeeting(meetingUuid, excludeUserId string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, payload)
}
func (b *stubBroker) SetHandler(handler chat.EnvelopeHandler) {}
func (b *stubBroker) Start()                                  {}
func (b *stubBroker) Close() error                            { return nil }

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

type chatFixture struct {
	repos      *repository.Repositories
	cache      *myredis.MemoryCache
	broker     *stubBroker
	reconciler *fallback.Reconciler
	emitter    *recordingEmitter
	svc        chatService
}

// chatService 测试关心的服务方法集合
type chatService interface {
	Post(meetingUuid, senderId string, req request.PostMessageRequest) (*respond.MessageRespond, error)
	FetchSince(meetingUuid, userId string, after int64, limit int) ([]respond.MessageRespond, error)
	MarkRead(meetingUuid, userId string, uptoSeq int64) error
	TypingSignal(meetingUuid, userId string) error
	ListTyping(meetingUuid, userId string, isAdmin bool) ([]string, error)
	HandleEnvelope(data []byte)
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	repos := memrepo.NewRepositories()
	cache := myredis.NewMemoryCache()
	broker := &stubBroker{}
	bus := fallback.NewMemorySignalBus()
	reconciler := fallback.NewReconciler(repos.Message, bus,
		chat.NewMessageRenderer(repos.Participant), time.Minute)
	emitter := &recordingEmitter{}
	svc := chat.NewChatService(repos, cache, broker, reconciler, bus,
		meetinglock.NewRegistry(), emitter, 0)
	return &chatFixture{
		repos: repos, cache: cache, broker: broker,
		reconciler: reconciler, emitter: emitter, svc: svc,
	}
}

func (f *chatFixture) seedMeeting(t *testing.T, uuid string, members ...string) {
	t.Helper()
	require.NoError(t, f.repos.Meeting.Create(&model.Meeting{
		Uuid: uuid, HostId: members[0], Title: "聊天测试", Location: "x",
		MaxParticipants: 10, Status: meeting_status_enum.RECRUITING,
		StartsAt: sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
		EndsAt:   sql.NullTime{Time: time.Now().Add(3 * time.Hour), Valid: true},
	}))
	for i, userId := range members {
		require.NoError(t, f.repos.Participant.Create(&model.Participant{
			Uuid: "P_" + userId, MeetingUuid: uuid, UserId: userId, LabelOrdinal: i + 1,
		}))
	}
}

func TestPostAssignsGaplessSequences(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	for i := 1; i <= 5; i++ {
		rsp, err := f.svc.Post("M1", "U1", request.PostMessageRequest{
			Type: message_type_enum.Text, Content: "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), rsp.Sequence)
		assert.Equal(t, "Participant1", rsp.SenderLabel)
	}
}

func TestPostRejectsNonParticipant(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")

	_, err := f.svc.Post("M1", "U_stranger", request.PostMessageRequest{
		Type: message_type_enum.Text, Content: "hi",
	})
	assert.True(t, errorx.IsCode(err, errorx.CodeNotAParticipant))
}

func TestPostRejectsCancelledMeeting(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")
	_, err := f.repos.Meeting.UpdateStatusFrom("M1",
		meeting_status_enum.RECRUITING, meeting_status_enum.CANCELLED)
	require.NoError(t, err)

	_, err = f.svc.Post("M1", "U1", request.PostMessageRequest{
		Type: message_type_enum.Text, Content: "hi",
	})
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidState))
}

func TestPostValidatesContentByType(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")

	_, err := f.svc.Post("M1", "U1", request.PostMessageRequest{Type: message_type_enum.Text})
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidParam))

	_, err = f.svc.Post("M1", "U1", request.PostMessageRequest{Type: message_type_enum.Image})
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidParam))

	_, err = f.svc.Post("M1", "U1", request.PostMessageRequest{
		Type: message_type_enum.Image, ImageUrl: "https://cdn/img.png",
	})
	require.NoError(t, err)
}

func TestPostDeliversToTrackedSessions(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	var mu sync.Mutex
	var received [][]byte
	f.reconciler.Track("M1", "U2", 0, func(payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
	})

	_, err := f.svc.Post("M1", "U1", request.PostMessageRequest{
		Type: message_type_enum.Text, Content: "第一条",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	var envelope respond.ChatEnvelopeRespond
	require.NoError(t, json.Unmarshal(received[0], &envelope))
	assert.Equal(t, respond.EnvelopeKindMessage, envelope.Kind)
	require.NotNil(t, envelope.Message)
	assert.Equal(t, int64(1), envelope.Message.Sequence)
	assert.Equal(t, "Participant1", envelope.Message.SenderLabel)
}

func TestPostEmitsMessageNotification(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	_, err := f.svc.Post("M1", "U1", request.PostMessageRequest{
		Type: message_type_enum.Image, ImageUrl: "https://cdn/img.png",
	})
	require.NoError(t, err)

	f.emitter.mu.Lock()
	defer f.emitter.mu.Unlock()
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, notification_kind_enum.MESSAGE_POSTED, f.emitter.events[0].Kind)
	assert.Equal(t, "[图片]", f.emitter.events[0].Body)
}

func TestHandleEnvelopePost(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")

	data, err := json.Marshal(request.ChatEnvelopeRequest{
		Kind: request.EnvelopeKindPost, MeetingId: "M1", SenderId: "U1",
		Type: message_type_enum.Text, Content: "来自 ws 的消息",
	})
	require.NoError(t, err)
	f.svc.HandleEnvelope(data)

	messages, err := f.repos.Message.FindAfterSequence("M1", 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "来自 ws 的消息", messages[0].Content)
}

func TestFetchSinceReturnsIncrement(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	for i := 0; i < 4; i++ {
		_, err := f.svc.Post("M1", "U1", request.PostMessageRequest{
			Type: message_type_enum.Text, Content: "m",
		})
		require.NoError(t, err)
	}

	list, err := f.svc.FetchSince("M1", "U2", 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].Sequence)
	assert.Equal(t, int64(4), list[1].Sequence)

	// 非成员不能拉取
	_, err = f.svc.FetchSince("M1", "U_stranger", 0, 0)
	assert.True(t, errorx.IsCode(err, errorx.CodeNotAParticipant))
}

func TestFetchSinceRendersLeftSenderLabel(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	_, err := f.svc.Post("M1", "U2", request.PostMessageRequest{
		Type: message_type_enum.Text, Content: "我要退了",
	})
	require.NoError(t, err)
	require.NoError(t, f.repos.Participant.Cancel("M1", "U2", time.Now()))

	list, err := f.svc.FetchSince("M1", "U1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	// 发送者已退出，标签仍按其历史报名记录渲染
	assert.Equal(t, "Participant2", list[0].SenderLabel)
}

func TestMarkReadIdempotentAndCounted(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	for i := 0; i < 3; i++ {
		_, err := f.svc.Post("M1", "U1", request.PostMessageRequest{
			Type: message_type_enum.Text, Content: "m",
		})
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.MarkRead("M1", "U2", 2))
	require.NoError(t, f.svc.MarkRead("M1", "U2", 2)) // 重复提交幂等

	list, err := f.svc.FetchSince("M1", "U1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(1), list[0].ReadCount)
	assert.Equal(t, int64(1), list[1].ReadCount)
	assert.Equal(t, int64(0), list[2].ReadCount)
}

func TestMarkReadRejectsInvalidSequence(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")

	err := f.svc.MarkRead("M1", "U1", 0)
	assert.True(t, errorx.IsCode(err, errorx.CodeInvalidParam))
}

func TestTypingSignalBroadcastAndList(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1", "U2")

	require.NoError(t, f.svc.TypingSignal("M1", "U2"))

	f.broker.mu.Lock()
	require.Len(t, f.broker.broadcasts, 1)
	var envelope respond.ChatEnvelopeRespond
	require.NoError(t, json.Unmarshal(f.broker.broadcasts[0], &envelope))
	f.broker.mu.Unlock()
	assert.Equal(t, respond.EnvelopeKindTyping, envelope.Kind)
	assert.Equal(t, "Participant2", envelope.TypingLabel)

	// 轮询端查询：排除自己
	labels, err := f.svc.ListTyping("M1", "U1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Participant2"}, labels)
	labels, err = f.svc.ListTyping("M1", "U2", false)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestTypingSignalNonParticipant(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")

	err := f.svc.TypingSignal("M1", "U_stranger")
	assert.True(t, errorx.IsCode(err, errorx.CodeNotAParticipant))
}

func TestListTypingRequiresMembership(t *testing.T) {
	f := newChatFixture(t)
	f.seedMeeting(t, "M1", "U1")
	require.NoError(t, f.svc.TypingSignal("M1", "U1"))

	// 非参与者不能窥视输入状态
	_, err := f.svc.ListTyping("M1", "U_stranger", false)
	assert.True(t, errorx.IsCode(err, errorx.CodeNotAParticipant))

	// 管理员放行
	labels, err := f.svc.ListTyping("M1", "U_admin", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Participant1"}, labels)
}
