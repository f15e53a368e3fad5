package notify

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ksred/order-api/internal/types"
	"github.com/rs/zerolog/log"
)

// Publisher is the asynchronous notification port. Delivery is
// best-effort; failures are reported to the caller only so they can be
// logged, never so they can fail the originating request.
type Publisher interface {
	PublishOrderCreated(event types.OrderCreatedEvent) error
	Close()
}

// AMQPPublisher publishes order events to a named durable queue.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPPublisher{
		conn:    conn,
		channel: channel,
		queue:   queue,
	}, nil
}

func (p *AMQPPublisher) PublishOrderCreated(event types.OrderCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.channel.Publish(
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		},
	)
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// LogPublisher logs events instead of delivering them. Used when no broker
// is configured; keeps the port swappable for a real consumer.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) PublishOrderCreated(event types.OrderCreatedEvent) error {
	log.Info().
		Str("order_id", event.OrderID).
		Int64("user_id", event.UserID).
		Float64("total_price", event.TotalPrice).
		Msg("order created event")
	return nil
}

func (p *LogPublisher) Close() {}
