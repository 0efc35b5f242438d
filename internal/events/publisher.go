package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"community-interaction-api/internal/domain"
)

// Envelope is the wire shape of a published domain event
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateKind string          `json:"aggregateKind"`
	AggregateID   uint            `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox row for publishing
func NewEnvelope(e *domain.OutboxEvent) Envelope {
	return Envelope{
		ID:            e.EventID.String(),
		Type:          e.Type,
		AggregateKind: e.AggregateKind,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.CreatedAt,
		Payload:       json.RawMessage(e.Payload),
	}
}

// Publisher delivers outbox events to the broker
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
	Close() error
}

// AMQPPublisher publishes to a durable fanout exchange
type AMQPPublisher struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// Publish sends one event, reconnecting first if the channel was closed
func (p *AMQPPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(NewEnvelope(event))
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		p.logger.Warn("Broker channel closed, reconnecting", zap.String("exchange", p.exchange))
		if err := p.connect(); err != nil {
			return err
		}
	}

	return p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID.String(),
		Type:         event.Type,
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoOpPublisher drops events; used when no broker is configured
type NoOpPublisher struct {
	logger *zap.Logger
}

// NewNoOpPublisher creates a publisher that only logs
func NewNoOpPublisher(logger *zap.Logger) *NoOpPublisher {
	return &NoOpPublisher{logger: logger}
}

func (p *NoOpPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	p.logger.Debug("Broker disabled, dropping event",
		zap.String("type", event.Type),
		zap.String("event_id", event.EventID.String()),
	)
	return nil
}

func (p *NoOpPublisher) Close() error {
	return nil
}
