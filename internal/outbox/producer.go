package outbox

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerOption tunes the Kafka writer behind a KafkaProducer.
type ProducerOption func(*kafka.Writer)

// WithBatchTimeout bounds how long the writer waits to fill a batch.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(w *kafka.Writer) {
		if d > 0 {
			w.BatchTimeout = d
		}
	}
}

// WithTopicCreation lets the broker create tracking_events on first write.
func WithTopicCreation() ProducerOption {
	return func(w *kafka.Writer) { w.AllowAutoTopicCreation = true }
}

// KafkaProducer publishes framed tracking events. A single writer serves
// every topic; each message names its own. Keys are hashed so one owner's
// events stay ordered on one partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer builds a producer for brokers.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return &KafkaProducer{writer: w}
}

// WriteMessages publishes msgs synchronously. Every message must carry a Topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes and releases connections.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
