package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"dochub/internal/logger"
)

// Event types emitted by the file services.
const (
	FileUploaded  = "file.uploaded"
	FileDeleted   = "file.deleted"
	FileProcessed = "file.processed"
	FileExpired   = "file.expired"
)

// Event is an activity record. Payloads never carry file content.
type Event struct {
	Type      string    `json:"type"`
	FileID    string    `json:"fileId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers activity events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by file id. The writer
// runs asynchronously, so Publish returns once the message is queued and
// delivery failures are logged from the completion callback.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

const publishTimeout = 2 * time.Second

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	log := logger.Component("events")
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			MaxAttempts:            3,
			Async:                  true,
			Completion:             completion(log),
		},
		timeout: publishTimeout,
	}
}

func completion(log zerolog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			log.Warn().Err(err).Str("file_id", string(m.Key)).Msg("event_delivery_failed")
		}
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.FileID),
		Value: payload,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	timeout := p.timeout
	if timeout <= 0 {
		timeout = publishTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Emit publishes e and logs failures. Event delivery never fails the caller.
func Emit(ctx context.Context, p Publisher, log zerolog.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", e.Type).Str("file_id", e.FileID).Msg("publish event failed")
	}
}
