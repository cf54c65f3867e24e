package out

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"ledgertx/internal/modules/ledger/domain"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	"ledgertx/internal/platform/logger"
)

type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *logger.Logger
}

// DialRabbitMQ connects to url and declares exchange as a durable topic
// exchange. Events are routed by their type.
func DialRabbitMQ(url, exchange string, log *logger.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Properties: amqp.Table{"connection_name": "ledgertx_publisher"},
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQPublisher{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

var _ ledgerout.EventPublisher = (*RabbitMQPublisher)(nil)

func (p *RabbitMQPublisher) Publish(ctx context.Context, event domain.TransferEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.TransferID,
			Timestamp:    event.CompletedAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	p.log.Debug("event published", "routing_key", event.Type, "transfer_id", event.TransferID)
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return fmt.Errorf("close rabbitmq channel: %w", err)
	}
	return p.conn.Close()
}
