package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"mastery-quiz-service/internal/domain"
)

// DefaultExchange is used when no exchange is configured.
const DefaultExchange = "quiz.events"

// Publisher sends session events to a topic exchange.
// With an empty URL it is disabled and Publish is a no-op.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool

	// amqp091 channels are not safe for concurrent publishing
	mu sync.Mutex
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if url == "" {
		log.Printf("rabbitmq url not configured, session events will not be published")
		return &Publisher{exchange: exchange}, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Printf("publishing session events to exchange %s", exchange)
	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
	}, nil
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) Publish(ctx context.Context, event domain.SessionEvent) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(event.Type), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    timestamp(event.OccurredAt),
		Body:         body,
		Headers: amqp091.Table{
			"event_type": string(event.Type),
			"session_id": event.SessionID,
			"user_id":    event.UserID,
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("close rabbitmq channel failed: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RoutingKey maps an event type to its topic, e.g. quiz.session.weak_topic.
func RoutingKey(t domain.EventType) string {
	return "quiz.session." + string(t)
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
