package kafkasink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/segmentio/kafka-go"
)

const headerEventType = "eventType"

type Config struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink writes saga events to a single Kafka topic, keyed by order or request id.
type Sink struct {
	w     messageWriter
	topic string
	log   observability.Logger
}

func New(cfg Config, tel observability.Observability) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafkasink: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafkasink: topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewWithWriter(w, cfg.Topic, tel), nil
}

// NewWithWriter wraps an existing writer; the writer must already target topic.
func NewWithWriter(w messageWriter, topic string, tel observability.Observability) *Sink {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Sink{
		w:     w,
		topic: topic,
		log:   tel.Logger().With(observability.F("component", "kafka_sink"), observability.F("topic", topic)),
	}
}

func (s *Sink) Send(ctx context.Context, eventName, key string, payload []byte) error {
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(eventName)}},
		Time:    time.Now().UTC(),
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkasink: write %s to %s: %w", eventName, s.topic, err)
	}
	s.log.Debug("event_forwarded", observability.F("event", eventName), observability.F("key", key))
	return nil
}

func (s *Sink) Close() error {
	s.log.Info("kafka_sink_closing")
	return s.w.Close()
}
