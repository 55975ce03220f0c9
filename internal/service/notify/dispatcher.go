// Package notify 实现通知分发器
// 领域事件在事务提交后进入分发器：先持久化通知行（事实来源），
// 再异步尽力推送到设备，推送失败只记日志，绝不影响调用方
package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"meetup_hub_server/internal/dao/mysql/repository"
	myredis "meetup_hub_server/internal/dao/redis"
	"meetup_hub_server/internal/dto/respond"
	"meetup_hub_server/internal/infrastructure/push"
	"meetup_hub_server/internal/model"
	"meetup_hub_server/pkg/enum/notification/notification_kind_enum"
	"meetup_hub_server/pkg/errorx"
	"meetup_hub_server/pkg/util/random"
)

// Event 领域事件
// 由聚会/名单/聊天各服务在写入提交后发出
type Event struct {
	Kind        int8   // 参见 notification_kind_enum
	MeetingUuid string // 事件所属聚会
	ActorId     string // 触发者，不会收到自己触发的通知
	RelatedId   string // 关联实体 id（用户 uuid 或消息 id）
	Body        string // 通知文案，空则使用类型默认标题
}

// dispatcherService 通知分发器实现
type dispatcherService struct {
	repos  *repository.Repositories
	cache  myredis.AsyncCacheService
	pusher push.PushService
}

// NewDispatcher 构造函数，注入所有依赖
func NewDispatcher(repos *repository.Repositories, cacheService myredis.AsyncCacheService, pusher push.PushService) *dispatcherService {
	return &dispatcherService{
		repos:  repos,
		cache:  cacheService,
		pusher: pusher,
	}
}

// resolveRecipients 按事件类型解析接收人集合
//   - 报名/退出：通知发起人（发起人自己触发则无人接收）
//   - 成团/取消：通知除触发者外的全部有效参与者
//   - 新消息：通知除发送者外的全部有效参与者
//   - 出席标记：通知被标记的本人
func (d *dispatcherService) resolveRecipients(event Event) ([]string, error) {
	switch event.Kind {
	case notification_kind_enum.JOINED, notification_kind_enum.LEFT:
		meeting, err := d.repos.Meeting.FindByUuid(event.MeetingUuid)
		if err != nil {
			return nil, err
		}
		if meeting.HostId == event.ActorId {
			return nil, nil
		}
		return []string{meeting.HostId}, nil

	case notification_kind_enum.ATTENDANCE_MARKED:
		if event.RelatedId == "" || event.RelatedId == event.ActorId {
			return nil, nil
		}
		return []string{event.RelatedId}, nil

	default:
		participants, err := d.repos.Participant.FindActiveByMeeting(event.MeetingUuid)
		if err != nil {
			return nil, err
		}
		recipients := make([]string, 0, len(participants))
		for _, p := range participants {
			if p.UserId != event.ActorId {
				recipients = append(recipients, p.UserId)
			}
		}
		return recipients, nil
	}
}

// Emit 分发一个领域事件
// 持久化失败会返回错误；推送失败只记日志
func (d *dispatcherService) Emit(event Event) error {
	recipients, err := d.resolveRecipients(event)
	if err != nil {
		zap.L().Error("解析通知接收人失败", zap.Error(err), zap.Int8("kind", event.Kind))
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	body := event.Body
	if body == "" {
		body = notification_kind_enum.Title(event.Kind)
	}

	notifications := make([]model.Notification, 0, len(recipients))
	for _, recipientId := range recipients {
		notifications = append(notifications, model.Notification{
			Uuid:        fmt.Sprintf("N%s", random.GetNowAndLenRandomString(11)),
			RecipientId: recipientId,
			Kind:        event.Kind,
			MeetingUuid: event.MeetingUuid,
			RelatedId:   event.RelatedId,
			Body:        body,
		})
	}
	if err := d.repos.Notification.CreateBatch(notifications); err != nil {
		zap.L().Error("写入通知失败", zap.Error(err))
		return errorx.ErrServerBusy
	}

	// 异步尽力推送，单个用户失败不影响其他人
	title := notification_kind_enum.Title(event.Kind)
	data := map[string]string{"meeting_id": event.MeetingUuid}
	for _, recipientId := range recipients {
		rid := recipientId
		d.cache.SubmitTask(func() {
			if err := d.pusher.PushToDevice(rid, title, body, data); err != nil {
				zap.L().Warn("设备推送失败", zap.Error(err), zap.String("user_id", rid))
			}
		})
	}
	return nil
}

// List 查询通知列表，附带未读计数
func (d *dispatcherService) List(recipientId string, limit int) (*respond.NotificationListRespond, error) {
	list, err := d.repos.Notification.FindByRecipient(recipientId, limit)
	if err != nil {
		zap.L().Error("查询通知列表失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	unread, err := d.repos.Notification.CountUnread(recipientId)
	if err != nil {
		zap.L().Error("统计未读通知失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	rsp := &respond.NotificationListRespond{
		Items:       make([]respond.NotificationRespond, 0, len(list)),
		UnreadCount: unread,
	}
	for _, n := range list {
		rsp.Items = append(rsp.Items, respond.NotificationRespond{
			NotificationId: n.Uuid,
			Kind:           n.Kind,
			MeetingId:      n.MeetingUuid,
			RelatedId:      n.RelatedId,
			Body:           n.Body,
			Read:           n.ReadAt.Valid,
			CreatedAt:      n.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return rsp, nil
}

// MarkRead 标记单条通知已读，只有接收人本人可操作，重复标记幂等
func (d *dispatcherService) MarkRead(recipientId, notificationUuid string) error {
	notification, err := d.repos.Notification.FindByUuid(notificationUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "通知不存在")
		}
		zap.L().Error("查询通知失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	if notification.RecipientId != recipientId {
		return errorx.ErrPermissionDenied
	}
	if notification.ReadAt.Valid {
		return nil
	}
	if err := d.repos.Notification.MarkRead(notificationUuid, time.Now()); err != nil {
		zap.L().Error("标记通知已读失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	return nil
}

// MarkAllRead 标记本人的全部通知已读
func (d *dispatcherService) MarkAllRead(recipientId string) error {
	if err := d.repos.Notification.MarkAllRead(recipientId, time.Now()); err != nil {
		zap.L().Error("标记全部已读失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	return nil
}

// Delete 删除单条通知，只有接收人本人可操作
func (d *dispatcherService) Delete(recipientId, notificationUuid string) error {
	notification, err := d.repos.Notification.FindByUuid(notificationUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "通知不存在")
		}
		zap.L().Error("查询通知失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	if notification.RecipientId != recipientId {
		return errorx.ErrPermissionDenied
	}
	if err := d.repos.Notification.DeleteByUuid(notificationUuid); err != nil {
		zap.L().Error("删除通知失败", zap.Error(err))
		return errorx.ErrServerBusy
	}
	return nil
}
