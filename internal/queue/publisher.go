package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher 把邮件任务发送到 rabbitmq 的邮件队列，由 cmd/mail 消费
type Publisher struct {
	cfg *config.Config
	ch  *amqp.Channel

	// amqp.Channel 不能被多个 goroutine 同时使用
	mu sync.Mutex
}

func NewPublisher(cfg *config.Config, ch *amqp.Channel) *Publisher {
	return &Publisher{cfg: cfg, ch: ch}
}

// DeclareQueue 声明持久化的邮件队列，发送方和消费方都会调用
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	return err
}

func (p *Publisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.cfg.RabbitMQ.Queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
