// Package consumer reads Kafka topics for the tracker: the audit sink for
// published tracking events and the inbound chat update stream.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/IvanSitnikov1/tracker-bot/internal/outbox"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Decoder turns a raw record into a Message.
type Decoder func(kafka.Message) (Message, error)

// Message is the decoded representation of a Kafka record.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	OwnerID       int64
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDecoder replaces the default schema-registry framed decoder.
func WithDecoder(decode Decoder) Option {
	return func(p *Processor) {
		if decode != nil {
			p.decode = decode
		}
	}
}

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// Processor pulls records from one reader, decodes them and hands them to a
// Handler. A record is committed once handled or once found undecodable; a
// handler failure leaves it uncommitted for redelivery.
type Processor struct {
	reader  Reader
	handler Handler
	decode  Decoder
	logger  *log.Logger
	backoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		decode:  DecodeFramed,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled or the reader reports cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := p.reader.FetchMessage(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil {
			p.logger.Printf("fetch error: %v", err)
			if err := p.pause(ctx); err != nil {
				return err
			}
			continue
		}

		if p.process(ctx, record) {
			p.commit(ctx, record)
		}
	}
}

// process reports whether record may be committed.
func (p *Processor) process(ctx context.Context, record kafka.Message) bool {
	msg, err := p.decode(record)
	if err != nil {
		// Undecodable records are committed so they cannot block the partition.
		p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", record.Topic, record.Partition, record.Offset, err)
		observe(record.Topic, resultDecodeError, time.Time{})
		return true
	}

	started := time.Now()
	if err := p.handler.Handle(ctx, msg); err != nil {
		p.logger.Printf("handler error (event_type=%s, owner=%d, offset=%d): %v", msg.EventType, msg.OwnerID, msg.Offset, err)
		observe(msg.Topic, resultHandlerError, started)
		return false
	}
	observe(msg.Topic, resultHandled, started)
	return true
}

func (p *Processor) commit(ctx context.Context, record kafka.Message) {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		p.logger.Printf("commit error (topic=%s, offset=%d): %v", record.Topic, record.Offset, err)
		return
	}
	if !record.Time.IsZero() {
		lastRecordGauge.WithLabelValues(record.Topic).Set(float64(record.Time.Unix()))
	}
}

func (p *Processor) pause(ctx context.Context) error {
	timer := time.NewTimer(p.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DecodeFramed decodes records written by the outbox dispatcher.
func DecodeFramed(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	schemaID, payload, err := outbox.DecodeWireFormat(msg.Value)
	if err != nil {
		return Message{}, fmt.Errorf("invalid payload: %w", err)
	}
	schemaSubject, _ := headerValue(msg, "schema_subject")

	decoded := base(msg)
	decoded.EventType = string(eventType)
	decoded.SchemaSubject = string(schemaSubject)
	decoded.SchemaID = schemaID
	decoded.Payload = json.RawMessage(append([]byte(nil), payload...))
	if raw, ok := headerValue(msg, "owner_id"); ok {
		decoded.OwnerID, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	return decoded, nil
}

// DecodeJSON decodes plain JSON records such as chat updates forwarded by a
// gateway. The event type defaults to the topic name.
func DecodeJSON(msg kafka.Message) (Message, error) {
	if !json.Valid(msg.Value) {
		return Message{}, errors.New("value is not valid JSON")
	}
	decoded := base(msg)
	decoded.EventType = msg.Topic
	if eventType, ok := headerValue(msg, "event_type"); ok {
		decoded.EventType = string(eventType)
	}
	decoded.Payload = json.RawMessage(append([]byte(nil), msg.Value...))
	return decoded, nil
}

func base(msg kafka.Message) Message {
	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
