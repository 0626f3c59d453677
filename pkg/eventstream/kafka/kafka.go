// Package kafka provides a Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mediguideco/mediguide/pkg/eventstream"
)

// Config holds the Kafka connection settings.
type Config struct {
	// Brokers is a comma-separated list of broker addresses.
	Brokers string

	// Topic is the topic answer events are written to.
	Topic string
}

// Publisher writes answer events to a Kafka topic. Messages are keyed by
// conversation ID so one conversation's events stay ordered within a
// partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:    cfg.Topic,
		Balancer: &kafkago.Hash{},
	}

	return &Publisher{writer: writer}, nil
}

// PublishAnswer writes one answer event to the topic.
func (p *Publisher) PublishAnswer(ctx context.Context, event *eventstream.AnswerRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling answer event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.ConversationID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing answer event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
