package rabbitsink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	URL      string
	Exchange string
	// DialAttempts bounds connection retries at startup. Zero means 5.
	DialAttempts int
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Sink publishes saga events to a topic exchange, routed by event name.
type Sink struct {
	ch       publisher
	conn     *amqp.Connection
	exchange string
	log      observability.Logger
}

// Dial connects with backoff and declares the exchange.
func Dial(ctx context.Context, cfg Config, tel observability.Observability) (*Sink, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("rabbitsink: exchange name cannot be empty")
	}
	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 5
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil || i == attempts-1 {
			break
		}
		wait := time.Duration(i*i)*time.Second + time.Second
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitsink: dial: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("rabbitsink: connect after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitsink: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitsink: declare exchange %s: %w", cfg.Exchange, err)
	}

	s := NewWithChannel(ch, cfg.Exchange, tel)
	s.conn = conn
	return s, nil
}

func NewWithChannel(ch publisher, exchange string, tel observability.Observability) *Sink {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Sink{
		ch:       ch,
		exchange: exchange,
		log:      tel.Logger().With(observability.F("component", "rabbitmq_sink"), observability.F("exchange", exchange)),
	}
}

func (s *Sink) Send(ctx context.Context, eventName, key string, payload []byte) error {
	err := s.ch.PublishWithContext(ctx, s.exchange, eventName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         eventName,
		MessageId:    key,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("rabbitsink: publish %s to %s: %w", eventName, s.exchange, err)
	}
	s.log.Debug("event_forwarded", observability.F("event", eventName), observability.F("key", key))
	return nil
}

func (s *Sink) Close() error {
	var errs []error
	if s.ch != nil {
		errs = append(errs, s.ch.Close())
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	return errors.Join(errs...)
}
