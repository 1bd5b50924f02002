// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"message-api/internal/metrics"
	"message-api/internal/model"
)

const MessageCreatedType = "message.created"

// Publisher announces stored messages to downstream consumers.
type Publisher interface {
	PublishMessageCreated(ctx context.Context, m model.Message) error
	Close() error
}

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string

	// amqp channels are not safe for concurrent publishing
	mu  sync.Mutex
	now func() time.Time
}

func NewRabbitClient(url, queue string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	r := &RabbitClient{
		conn:    conn,
		channel: ch,
		queue:   queue,
		now:     time.Now,
	}
	if err := r.declareQueue(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *RabbitClient) Queue() string {
	return r.queue
}

func (r *RabbitClient) GetChannel() *amqp.Channel {
	return r.channel
}

func (r *RabbitClient) declareQueue() error {
	_, err := r.channel.QueueDeclare(
		r.queue,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", r.queue, err)
	}
	return nil
}

// PublishMessageCreated sends a persistent message.created event for m.
func (r *RabbitClient) PublishMessageCreated(ctx context.Context, m model.Message) error {
	if err := ctx.Err(); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return err
	}

	event := model.NewMessageCreated(m, r.now())
	body, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	err = r.channel.Publish(
		"",      // default exchange
		r.queue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID.String(),
			Timestamp:    event.OccurredAt,
			Type:         MessageCreatedType,
			Body:         body,
		},
	)
	r.mu.Unlock()
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish to queue %s: %w", r.queue, err)
	}

	metrics.EventsPublished.WithLabelValues("ok").Inc()
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishMessageCreated(context.Context, model.Message) error { return nil }

func (NopPublisher) Close() error { return nil }
