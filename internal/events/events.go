// Package events publishes activity and finding lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types carried in the event_type header.
const (
	ActivityStarted   = "activity.started"
	ActivityCompleted = "activity.completed"
	FindingReported   = "finding.reported"
	FindingResolved   = "finding.resolved"
)

// Event is a lifecycle change worth telling downstream systems about.
type Event struct {
	Type       string    `json:"type"`
	RangerID   string    `json:"ranger_id"`
	ActivityID string    `json:"activity_id,omitempty"`
	FindingID  string    `json:"finding_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher delivers events. Publishing is best effort; callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Writer exposes the subset of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON records keyed by ranger id.
type KafkaPublisher struct {
	writer Writer
	source string
	logger *slog.Logger
}

// NewKafkaWriter builds a writer for the given brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher wraps writer. source is stamped in the source header.
func NewKafkaPublisher(writer Writer, source string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &KafkaPublisher{writer: writer, source: source, logger: logger}
}

// Publish encodes e and writes it. Events of one ranger share a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(e.RangerID),
		Value: payload,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "source", Value: []byte(p.source)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", e.Type, err)
	}
	p.logger.Debug("event published", "type", e.Type, "ranger_id", e.RangerID)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
