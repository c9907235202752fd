// Package sink exports error events outside the process.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/thisdougb/gamehealth/internal/config"
	"github.com/thisdougb/gamehealth/internal/events"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes error events as JSON messages to a Kafka topic.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 5 * time.Second,
		},
		topic: topic,
	}, nil
}

// NewKafkaSinkFromConfig reads HEALTH_KAFKA_BROKERS and HEALTH_KAFKA_TOPIC.
// It returns nil without error when no brokers are configured.
func NewKafkaSinkFromConfig() (*KafkaSink, error) {
	raw := config.StringValue("HEALTH_KAFKA_BROKERS")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return NewKafkaSink(brokers, config.StringValue("HEALTH_KAFKA_TOPIC"))
}

// Export publishes one event. Events of the same module share a partition.
func (s *KafkaSink) Export(ctx context.Context, event events.LogEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := event.ModuleID
	if key == "" {
		key = event.SessionID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.Timestamp.UTC(),
		Headers: []kafka.Header{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "session_id", Value: []byte(event.SessionID)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
