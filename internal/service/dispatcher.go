package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Mailer 把邮件任务交给邮件队列
type Mailer interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// Dispatcher 把 outbox 中的事件投递为审计日志和站内通知
type Dispatcher struct {
	cfg    *config.Config
	store  Store
	mailer Mailer

	kick chan struct{}
	mu   sync.Mutex
}

func NewDispatcher(cfg *config.Config, store Store, mailer Mailer) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		store:  store,
		mailer: mailer,
		kick:   make(chan struct{}, 1),
	}
}

// Kick 通知 Run 尽快处理一次，不会阻塞
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run 定时以及在收到 Kick 时处理待投递的事件，直到 ctx 被取消
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(d.cfg.Outbox.PollInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}

		if _, err := d.Drain(ctx); err != nil {
			slog.Error("处理 outbox 事件失败", "error", err)
		}
	}
}

// Drain 同步处理一批待投递的事件，返回成功投递的数量
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// 投递过程不应该因为调用方取消而中断
	ctx = context.WithoutCancel(ctx)

	lease := time.Duration(d.cfg.Outbox.ClaimTimeout) * time.Second
	events, err := d.store.ClaimPendingEvents(ctx, d.cfg.Outbox.BatchSize, d.cfg.Outbox.MaxAttempts, lease)
	if err != nil {
		return 0, err
	}

	var delivered atomic.Int64
	g := errgroup.Group{}
	g.SetLimit(max(d.cfg.Outbox.Concurrency, 1))

	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			if err := d.deliver(ctx, ev); err != nil {
				slog.Warn("事件投递失败", "eventID", ev.ID, "kind", ev.Kind, "attempts", ev.Attempts+1, "error", err)
				if err := d.store.MarkEventFailed(ctx, ev.ID, err.Error()); err != nil {
					slog.Error("无法记录事件投递失败", "eventID", ev.ID, "error", err)
				}
				return nil
			}

			if err := d.store.MarkEventDispatched(ctx, ev.ID); err != nil {
				slog.Error("无法标记事件为已投递", "eventID", ev.ID, "error", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	return int(delivered.Load()), nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev *domain.Event) error {
	switch ev.Kind {
	case domain.EventKindAudit:
		entry := &domain.AuditLog{}
		if err := json.Unmarshal(ev.Payload, entry); err != nil {
			return fmt.Errorf("审计事件反序列化失败: %w", err)
		}
		entry.EventID = ev.ID
		return d.store.InsertAuditLog(ctx, entry)

	case domain.EventKindNotification:
		n := &domain.Notification{}
		if err := json.Unmarshal(ev.Payload, n); err != nil {
			return fmt.Errorf("通知事件反序列化失败: %w", err)
		}
		n.EventID = ev.ID
		if n.CreatedAt.IsZero() {
			n.CreatedAt = ev.CreatedAt
		}
		inserted, err := d.store.InsertNotification(ctx, n)
		if err != nil {
			return err
		}
		// 重复投递的事件不再发送邮件
		if inserted {
			d.sendMail(ctx, n)
		}
		return nil

	default:
		return fmt.Errorf("未知的事件类型 %q", ev.Kind)
	}
}

// sendMail 邮件只是尽力而为，失败只记录日志
func (d *Dispatcher) sendMail(ctx context.Context, n *domain.Notification) {
	if d.mailer == nil {
		return
	}

	user, err := d.store.GetUserByID(ctx, n.RecipientID)
	if err != nil {
		slog.Warn("无法获取通知接收者", "recipientID", n.RecipientID, "error", err)
		return
	}
	if user.Email == "" {
		return
	}

	msg := domain.MailMessage{
		Type: domain.MailTypeShiftNotification,
		To:   user.Email,
		Data: domain.ShiftNotificationMailData{
			FullName: user.FullName,
			Title:    n.Title,
			Message:  n.Message,
		},
	}
	if err := d.mailer.Publish(ctx, msg); err != nil {
		slog.Warn("通知邮件发送失败", "recipientID", n.RecipientID, "error", err)
	}
}
