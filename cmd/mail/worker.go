package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

type mailTemplate struct {
	tmpl    *template.Template
	subject string
}

// loadTemplates 在启动时解析所有邮件模板
func loadTemplates(dir string) (map[string]mailTemplate, error) {
	files := map[string]struct {
		file    string
		subject string
	}{
		domain.MailTypeCreateUser:        {"new_account_email.html", "加油站排班系统 - 账户信息"},
		domain.MailTypeShiftNotification: {"shift_notification_email.html", "加油站排班系统 - 班次通知"},
	}

	templates := make(map[string]mailTemplate, len(files))
	for typ, f := range files {
		tmpl, err := template.ParseFiles(filepath.Join(dir, f.file))
		if err != nil {
			return nil, fmt.Errorf("无法解析邮件模板 %s: %w", f.file, err)
		}
		templates[typ] = mailTemplate{tmpl: tmpl, subject: f.subject}
	}

	return templates, nil
}

type sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

type worker struct {
	from      string
	templates map[string]mailTemplate
	sender    sender
	logger    *slog.Logger
}

// errPermanent 表示消息本身有问题，重新入队也不会成功
var errPermanent = errors.New("无法处理的邮件消息")

func (w *worker) buildMessage(body []byte) (*mail.Msg, error) {
	mm := domain.MailMessage{}
	if err := json.Unmarshal(body, &mm); err != nil {
		return nil, fmt.Errorf("%w: 反序列化失败: %v", errPermanent, err)
	}

	mt, ok := w.templates[mm.Type]
	if !ok {
		return nil, fmt.Errorf("%w: 不支持的邮件类型 %q", errPermanent, mm.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(w.from); err != nil {
		return nil, fmt.Errorf("无法设置发件人: %w", err)
	}
	if err := msg.To(mm.To); err != nil {
		return nil, fmt.Errorf("%w: 收件人 %q 无效: %v", errPermanent, mm.To, err)
	}
	msg.Subject(mt.subject)
	if err := msg.SetBodyHTMLTemplate(mt.tmpl, mm.Data); err != nil {
		return nil, fmt.Errorf("%w: 渲染邮件正文失败: %v", errPermanent, err)
	}

	return msg, nil
}

// handle 处理一条消息，发送失败时重新入队，消息本身有问题时直接丢弃
func (w *worker) handle(d amqp.Delivery) {
	// 消息体中可能包含初始密码，不记录内容
	logger := w.logger.With(slog.String("messageID", d.MessageId))

	msg, err := w.buildMessage(d.Body)
	if err != nil {
		logger.Error("无法构建邮件", slog.String("error", err.Error()))
		_ = d.Nack(false, !errors.Is(err, errPermanent))
		return
	}

	if err := w.sender.DialAndSend(msg); err != nil {
		logger.Error("邮件发送失败", slog.String("error", err.Error()))
		_ = d.Nack(false, true)
		return
	}

	logger.Info("邮件已发送")
	_ = d.Ack(false)
}
