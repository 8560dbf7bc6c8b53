package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Keyed events carry a partition or routing key for external brokers.
type Keyed interface {
	EventKey() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Sink forwards serialized events to a broker outside the process.
type Sink interface {
	Send(ctx context.Context, eventName, key string, payload []byte) error
	Close() error
}
