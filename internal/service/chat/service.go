// Package chat 实现聚会群聊的核心服务层
// service.go
// 核心职责：聊天业务逻辑
// 1. 发消息：按聚会互斥锁串行分配无空洞序号，落库后实时分发
// 2. 拉增量：按客户端确认序号返回其后的全部消息
// 3. 已读回执：截至某序号批量确认，重复提交幂等
// 4. 输入信令：短 TTL 缓存 + 临时广播，不落库
package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"meetup_hub_server/internal/dao/mysql/repository"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/dto/request"
	"meetup_hub_server/internal/dto/respond"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/internal/service/fallback"
	"meetup_hub_server/internal/service/notify"
	"meetup_hub_server/pkg/constants"
	"meetup_hub_server/pkg/enum/meeting/meeting_status_enum"
	"meetup_hub_server/pkg/enum/message/message_type_enum"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
	"meetup_hub_server/pkg/label"
	"meetup_hub_server/pkg/meetinglock"
	"meetup_hub_server/pkg/util/snowflake"
)

// EventEmitter 领域事件出口，由通知分发器实现
type EventEmitter interface {
	Emit(event notify.Event) error
}

// chatService 聊天业务逻辑实现
// 通过构造函数注入全部依赖
type chatService struct {
	repos           *repository.Repositories
	cache           myredis.AsyncCacheService
	broker          MessageBroker
	reconciler      *fallback.Reconciler
	bus             fallback.SignalBus
	locks           *meetinglock.Registry
	emitter         EventEmitter
	conflictRetries int
}

// NewChatService 构造函数，注入所有依赖
func NewChatService(
	repos *repository.Repositories,
	cacheService myredis.AsyncCacheService,
	broker MessageBroker,
	reconciler *fallback.Reconciler,
	bus fallback.SignalBus,
	locks *meetinglock.Registry,
	emitter EventEmitter,
	conflictRetries int,
) *chatService {
	if conflictRetries <= 0 {
		conflictRetries = constants.CONFLICT_MAX_RETRY
	}
	return &chatService{
		repos:           repos,
		cache:           cacheService,
		broker:          broker,
		reconciler:      reconciler,
		bus:             bus,
		locks:           locks,
		emitter:         emitter,
		conflictRetries: conflictRetries,
	}
}

// HandleEnvelope 实现 EnvelopeHandler 接口
// Broker 消费循环把上行信封交到这里，按类型分发
func (s *chatService) HandleEnvelope(data []byte) {
	var envelope request.ChatEnvelopeRequest
	if err := json.Unmarshal(data, &envelope); err != nil {
		zap.L().Error("上行信封反序列化失败", zap.Error(err))
		return
	}

	switch envelope.Kind {
	case request.EnvelopeKindPost:
		req := request.PostMessageRequest{
			Type:     envelope.Type,
			Content:  envelope.Content,
			ImageUrl: envelope.ImageUrl,
		}
		if _, err := s.Post(envelope.MeetingId, envelope.SenderId, req); err != nil {
			zap.L().Error("处理上行消息失败", zap.Error(err),
				zap.String("meeting_id", envelope.MeetingId), zap.String("sender_id", envelope.SenderId))
		}
	case request.EnvelopeKindTyping:
		if err := s.TypingSignal(envelope.MeetingId, envelope.SenderId); err != nil {
			zap.L().Error("处理输入信令失败", zap.Error(err))
		}
	default:
		zap.L().Warn("未知的上行信封类型", zap.String("kind", envelope.Kind))
	}
}

// buildMessageRespond 组装消息响应
func buildMessageRespond(message *model.ChatMessage, senderLabel string, readCount int64) *respond.MessageRespond {
	return &respond.MessageRespond{
		MessageId:   strconv.FormatInt(message.Uuid, 10),
		MeetingId:   message.MeetingUuid,
		Sequence:    message.Sequence,
		SenderId:    message.SenderId,
		SenderLabel: senderLabel,
		Type:        message.Type,
		Content:     message.Content,
		ImageUrl:    message.ImageUrl,
		ReadCount:   readCount,
		CreatedAt:   message.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// NewMessageRenderer 创建对账器使用的消息渲染函数
// 发送者可能已退出聚会，标签按其历史报名记录渲染
func NewMessageRenderer(participantRepo repository.ParticipantRepository) fallback.MessageRenderer {
	return func(message model.ChatMessage) ([]byte, error) {
		senderLabel := ""
		if p, err := participantRepo.FindAny(message.MeetingUuid, message.SenderId); err == nil {
			senderLabel = label.For(p.LabelOrdinal)
		}
		envelope := respond.ChatEnvelopeRespond{
			Kind:      respond.EnvelopeKindMessage,
			MeetingId: message.MeetingUuid,
			Message:   buildMessageRespond(&message, senderLabel, 0),
		}
		return json.Marshal(envelope)
	}
}

// Post 发送聊天消息
// 在聚会互斥锁内取当前最大序号加一，保证序号连续且无空洞；
// 多节点并发下靠 (meeting_uuid, sequence) 唯一索引兜底，冲突有界重试
func (s *chatService) Post(meetingUuid, senderId string, req request.PostMessageRequest) (*respond.MessageRespond, error) {
	switch req.Type {
	case message_type_enum.Text:
		if req.Content == "" {
			return nil, errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
		}
	case message_type_enum.Image:
		if req.ImageUrl == "" {
			return nil, errorx.New(errorx.CodeInvalidParam, "图片地址不能为空")
		}
	default:
		return nil, errorx.New(errorx.CodeInvalidParam, "不支持的消息类型")
	}

	unlock := s.locks.Lock(meetingUuid)
	defer unlock()

	meeting, err := s.repos.Meeting.FindByUuid(meetingUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "聚会不存在")
		}
		zap.L().Error("查询聚会失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if meeting.IsTemplate {
		return nil, errorx.New(errorx.CodeInvalidState, "周期模板没有聊天室")
	}
	switch meeting.EffectiveStatus(time.Now()) {
	case meeting_status_enum.CANCELLED:
		return nil, errorx.New(errorx.CodeInvalidState, "聚会已取消，聊天室已关闭")
	case meeting_status_enum.CLOSED:
		return nil, errorx.New(errorx.CodeInvalidState, "聚会已结束，聊天室已关闭")
	}

	participant, err := s.repos.Participant.FindActive(meetingUuid, senderId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrNotAParticipant
		}
		zap.L().Error("查询参与者失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	var message model.ChatMessage
	for attempt := 0; ; attempt++ {
		maxSeq, err := s.repos.Message.MaxSequence(meetingUuid)
		if err != nil {
			zap.L().Error("查询最大序号失败", zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		message = model.ChatMessage{
			Uuid:        snowflake.GenerateID(),
			MeetingUuid: meetingUuid,
			Sequence:    maxSeq + 1,
			SenderId:    senderId,
			Type:        req.Type,
			Content:     req.Content,
			ImageUrl:    req.ImageUrl,
		}
		err = s.repos.Message.Create(&message)
		if err == nil {
			break
		}
		if errorx.IsCode(err, errorx.CodeConflict) && attempt < s.conflictRetries {
			zap.L().Warn("序号分配冲突，重试", zap.Int("attempt", attempt+1), zap.String("meeting_id", meetingUuid))
			continue
		}
		zap.L().Error("写入消息失败", zap.Error(err))
		if errorx.IsCode(err, errorx.CodeConflict) {
			return nil, errorx.ErrConflict
		}
		return nil, errorx.ErrServerBusy
	}

	rsp := buildMessageRespond(&message, label.For(participant.LabelOrdinal), 0)
	envelope := respond.ChatEnvelopeRespond{
		Kind:      respond.EnvelopeKindMessage,
		MeetingId: meetingUuid,
		Message:   rsp,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		zap.L().Error(err.Error())
		return rsp, nil
	}

	participants, err := s.repos.Participant.FindActiveByMeeting(meetingUuid)
	if err != nil {
		zap.L().Error("查询参与者列表失败", zap.Error(err))
		return rsp, nil
	}

	// 实时路径：投递给本机在线会话（发送者回显在内），经对账器按序号去重
	for _, p := range participants {
		s.reconciler.Offer(meetingUuid, p.UserId, message.Sequence, payload)
	}

	// 跨会话信令：唤醒各参与者的其余会话立即对账
	for _, p := range participants {
		userId := p.UserId
		s.cache.SubmitTask(func() {
			if err := s.bus.Signal(context.Background(), userId, meetingUuid); err != nil {
				zap.L().Warn("跨会话信令发送失败", zap.Error(err), zap.String("user_id", userId))
			}
		})
	}

	// 通知分发：写通知行 + 尽力推送，失败不影响消息本身
	body := req.Content
	if req.Type == message_type_enum.Image {
		body = "[图片]"
	}
	if runes := []rune(body); len(runes) > 50 {
		body = string(runes[:50])
	}
	event := notify.Event{
		Kind:        notification_kind_enum.MESSAGE_POSTED,
		MeetingUuid: meetingUuid,
		ActorId:     senderId,
		RelatedId:   strconv.FormatInt(message.Uuid, 10),
		Body:        body,
	}
	s.cache.SubmitTask(func() {
		if err := s.emitter.Emit(event); err != nil {
			zap.L().Warn("分发新消息通知失败", zap.Error(err))
		}
	})

	return rsp, nil
}

// FetchSince 拉取序号大于 after 的消息增量，按序号升序返回
// 只有有效参与者可以读取聊天记录
func (s *chatService) FetchSince(meetingUuid, userId string, after int64, limit int) ([]respond.MessageRespond, error) {
	if _, err := s.repos.Participant.FindActive(meetingUuid, userId); err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrNotAParticipant
		}
		zap.L().Error("查询参与者失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	messages, err := s.repos.Message.FindAfterSequence(meetingUuid, after, limit)
	if err != nil {
		zap.L().Error("查询消息增量失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	// 一次取全量报名记录（含已退出），渲染发送者标签
	ordinals := make(map[string]int)
	allParticipants, err := s.repos.Participant.FindByMeeting(meetingUuid)
	if err != nil {
		zap.L().Error("查询报名记录失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	for _, p := range allParticipants {
		ordinals[p.UserId] = p.LabelOrdinal
	}

	list := make([]respond.MessageRespond, 0, len(messages))
	for i := range messages {
		senderLabel := ""
		if ordinal, ok := ordinals[messages[i].SenderId]; ok {
			senderLabel = label.For(ordinal)
		}
		readCount, err := s.repos.ReadReceipt.CountAckers(meetingUuid, messages[i].Sequence)
		if err != nil {
			zap.L().Warn("统计已读人数失败", zap.Error(err), zap.Int64("sequence", messages[i].Sequence))
			readCount = 0
		}
		list = append(list, *buildMessageRespond(&messages[i], senderLabel, readCount))
	}
	return list, nil
}

// MarkRead 标记截至 uptoSeq 的全部消息已读
// 回执行带 (meeting, sequence, user) 唯一索引，重复提交幂等
func (s *chatService) MarkRead(meetingUuid, userId string, uptoSeq int64) error {
	if uptoSeq <= 0 {
		return errorx.New(errorx.CodeInvalidParam, "序号必须为正数")
	}
	if _, err := s.repos.Participant.FindActive(meetingUuid, userId); err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrNotAParticipant
		}
		zap.L().Error("查询参与者失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	sequences, err := s.repos.Message.FindUpToSequence(meetingUuid, uptoSeq)
	if err != nil {
		zap.L().Error("查询消息序号失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	if len(sequences) == 0 {
		return nil
	}

	receipts := make([]model.ReadReceipt, 0, len(sequences))
	for _, seq := range sequences {
		receipts = append(receipts, model.ReadReceipt{
			MeetingUuid: meetingUuid,
			Sequence:    seq,
			UserId:      userId,
		})
	}
	if err := s.repos.ReadReceipt.CreateIgnore(receipts); err != nil {
		zap.L().Error("写入已读回执失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	return nil
}

// TypingSignal 发布“正在输入”信令
// 写入短 TTL 缓存供轮询端查询，同时向本机在线参与者临时广播；
// 不落库，错过即错过
func (s *chatService) TypingSignal(meetingUuid, userId string) error {
	participant, err := s.repos.Participant.FindActive(meetingUuid, userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrNotAParticipant
		}
		zap.L().Error("查询参与者失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	typingLabel := label.For(participant.LabelOrdinal)
	key := "typing_" + meetingUuid + "_" + userId
	if err := s.cache.Set(context.Background(), key, typingLabel, constants.TYPING_TTL); err != nil {
		zap.L().Warn("写入输入信令缓存失败", zap.Error(err))
	}

	envelope := respond.ChatEnvelopeRespond{
		Kind:        respond.EnvelopeKindTyping,
		MeetingId:   meetingUuid,
		TypingLabel: typingLabel,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		zap.L().Error(err.Error())
		return nil
	}
	s.broker.BroadcastToMeeting(meetingUuid, userId, payload)
	return nil
}

// ListTyping 查询当前正在输入的参与者标签（轮询兜底端使用）
// 输入状态同样只对有效参与者可见，管理员放行
func (s *chatService) ListTyping(meetingUuid, userId string, isAdmin bool) ([]string, error) {
	if !isAdmin {
		if _, err := s.repos.Participant.FindActive(meetingUuid, userId); err != nil {
			if errorx.IsNotFound(err) {
				return nil, errorx.ErrNotAParticipant
			}
			zap.L().Error("查询参与者失败", zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
	}

	participants, err := s.repos.Participant.FindActiveByMeeting(meetingUuid)
	if err != nil {
		zap.L().Error("查询参与者列表失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	labels := make([]string, 0)
	for _, p := range participants {
		if p.UserId == userId {
			continue
		}
		value, err := s.cache.Get(context.Background(), "typing_"+meetingUuid+"_"+p.UserId)
		if err != nil || value == "" {
			continue
		}
		labels = append(labels, value)
	}
	return labels, nil
}
