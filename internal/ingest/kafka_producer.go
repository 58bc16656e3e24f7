package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/scrap-bidding/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes collector locations and bid events. Messages are keyed by
// collector so one collector's updates stay ordered within a partition.
type KafkaProducer struct {
	writer        messageWriter
	locationTopic string
	bidTopic      string
	timeout       time.Duration
}

func NewKafkaProducer(brokers []string, locationTopic, bidTopic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaProducer{writer: w, locationTopic: locationTopic, bidTopic: bidTopic, timeout: 2 * time.Second}
}

func (k *KafkaProducer) PublishLocation(ctx context.Context, c models.Collector) error {
	return k.publish(ctx, k.locationTopic, c.ID, c)
}

func (k *KafkaProducer) PublishBid(ctx context.Context, ev models.BidEvent) error {
	return k.publish(ctx, k.bidTopic, ev.CollectorID, ev)
}

func (k *KafkaProducer) publish(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
