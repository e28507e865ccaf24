package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"heliotelligence/internal/domain"
)

// Alert lifecycle event names.
const (
	EventCreated  = "created"
	EventResolved = "resolved"
)

// AlertEvent is the envelope published for each alert transition.
type AlertEvent struct {
	Event string                  `json:"event"`
	Alert domain.PerformanceAlert `json:"alert"`
}

// Producer wraps a Kafka producer for alert events
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer. Returns nil when no brokers are
// configured; a nil producer drops events instead of failing requests.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 {
		return nil
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // Partition by key (farm id)
			RequiredAcks: kafka.RequireOne,
			Async:        false, // Synchronous for reliability
			Compression:  kafka.Snappy,
		},
	}
}

// PublishAlertEvent sends one lifecycle event keyed by farm id
func (p *Producer) PublishAlertEvent(ctx context.Context, event string, alert domain.PerformanceAlert) error {
	if p == nil {
		return nil
	}

	value, err := json.Marshal(AlertEvent{Event: event, Alert: alert})
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(alert.FarmID, 10)),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
