package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Envelope is the wire format of every published order event.
type Envelope struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	OrderNumber string    `json:"order_number"`
	OccurredAt  time.Time `json:"occurred_at"`
	Producer    string    `json:"producer"`
}

// Producer publishes order lifecycle events to Kafka. Publishing is
// fire-and-forget: a slow or unavailable broker must never block a
// checkout or a webhook.
type Producer struct {
	writer *kafka.Writer
	inbox  chan kafka.Message
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewProducer builds a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:  make(chan kafka.Message, 1024),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (p *Producer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	go func() {
		defer close(p.done)
		for m := range p.inbox {
			if err := p.writer.WriteMessages(context.Background(), m); err != nil {
				p.logger.Error("publish event failed",
					slog.String("key", string(m.Key)),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Close flushes queued events and stops the delivery loop.
func (p *Producer) Close() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return p.writer.Close()
	}
	p.mu.Unlock()

	close(p.inbox)
	<-p.done
	return p.writer.Close()
}

// Notify enqueues one event keyed by order number so all events of one
// order land on the same partition. A full inbox drops the event with a
// warning rather than stalling the caller.
func (p *Producer) Notify(ctx context.Context, orderNumber, eventType string) {
	envelope := Envelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		OrderNumber: orderNumber,
		OccurredAt:  time.Now().UTC(),
		Producer:    "ordercore",
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("marshal event failed", slog.String("error", err.Error()))
		return
	}

	msg := kafka.Message{
		Key:   []byte(orderNumber),
		Value: value,
		Time:  envelope.OccurredAt,
	}
	select {
	case p.inbox <- msg:
	default:
		p.logger.Warn("event inbox full, dropping event",
			slog.String("order", orderNumber),
			slog.String("event", eventType),
		)
	}
}
