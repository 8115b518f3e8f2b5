package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
)

type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	AggregateID   string                 `json:"aggregateId"`
	AggregateType string                 `json:"aggregateType"`
	Timestamp     time.Time              `json:"timestamp"`
	Version       int                    `json:"version"`
	Payload       map[string]interface{} `json:"payload"`
}

type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type KafkaEventBus struct {
	writer *kafka.Writer
}

func NewKafkaEventBus(cfg config.KafkaConfig) *KafkaEventBus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaEventBus{writer: writer}
}

func (k *KafkaEventBus) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Keyed by aggregate so events of one workflow stay ordered per partition.
	msg := kafka.Message{
		Key:   []byte(event.AggregateType + ":" + event.AggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaEventBus) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

type NopEventBus struct{}

func (NopEventBus) Publish(context.Context, Event) error { return nil }
func (NopEventBus) Close() error                         { return nil }

// MemoryEventBus keeps published events in memory.
type MemoryEventBus struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemoryEventBus) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryEventBus) Close() error { return nil }

func (m *MemoryEventBus) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the type of every published event, in order.
func (m *MemoryEventBus) Types() []string {
	events := m.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// Publisher sends events without failing the caller. Events are emitted after
// the owning transaction commits, so a broker outage must not undo a write.
type Publisher struct {
	bus     EventBus
	logger  logger.Logger
	timeout time.Duration
}

func NewPublisher(bus EventBus, log logger.Logger) *Publisher {
	if bus == nil {
		bus = NopEventBus{}
	}
	return &Publisher{bus: bus, logger: log, timeout: 5 * time.Second}
}

func (p *Publisher) Publish(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.bus.Publish(ctx, event); err != nil {
		metrics.RecordEventFailed(event.Type)
		p.logger.Warn("Failed to publish event", "type", event.Type, "aggregate_id", event.AggregateID, "error", err)
		return
	}
	metrics.RecordEventPublished(event.Type)
}

type EventBuilder struct {
	event Event
}

func NewEventBuilder(eventType string) *EventBuilder {
	return &EventBuilder{
		event: Event{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Version:   1,
			Payload:   make(map[string]interface{}),
		},
	}
}

func (b *EventBuilder) WithAggregate(aggregateType string, id int64) *EventBuilder {
	b.event.AggregateType = aggregateType
	b.event.AggregateID = strconv.FormatInt(id, 10)
	return b
}

func (b *EventBuilder) WithPayload(key string, value interface{}) *EventBuilder {
	b.event.Payload[key] = value
	return b
}

func (b *EventBuilder) Build() Event {
	return b.event
}

const (
	UserRegistered = "user.registered"
	UserDeleted    = "user.deleted"

	WorkflowCreated = "workflow.created"
	WorkflowUpdated = "workflow.updated"
	WorkflowDeleted = "workflow.deleted"

	ExecutionCreated = "execution.created"
	ExecutionUpdated = "execution.updated"
	ExecutionDeleted = "execution.deleted"
)
