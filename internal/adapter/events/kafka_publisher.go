package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// KafkaPublisher writes events to Kafka keyed by aggregate id, so one dispute or escrow stays ordered
type KafkaPublisher struct {
	writer       *kafka.Writer
	defaultTopic string
	topicByEvent map[domain.EventType]string
}

// NewKafkaPublisher builds a publisher. Events whose type has no mapping go to defaultTopic,
// or to a topic named after the event family ("dispute.*" -> "shiftescrow.dispute") when defaultTopic is empty.
func NewKafkaPublisher(brokers []string, defaultTopic string, topicByEvent map[domain.EventType]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		defaultTopic: defaultTopic,
		topicByEvent: topicByEvent,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	return p.writer.WriteMessages(ctx, message(p.topicFor(event.Type), event, payload))
}

func (p *KafkaPublisher) topicFor(eventType domain.EventType) string {
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	if p.defaultTopic != "" {
		return p.defaultTopic
	}
	family, _, _ := strings.Cut(string(eventType), ".")
	return "shiftescrow." + family
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func message(topic string, event domain.Event, payload []byte) kafka.Message {
	return kafka.Message{
		Topic: topic,
		Key:   []byte(event.AggregateID.String()),
		Value: payload,
		Time:  event.OccurredAt.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	}
}
