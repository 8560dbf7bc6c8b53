package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"
)

const componentOutbox = "outbox"

var ErrBusClosed = errors.New("outbox: bus is stopped")

// Bus is an in-memory event bus for saga outcome events. It is not durable;
// events still queued at shutdown are drained before Stop returns.
type Bus struct {
	subMu          sync.RWMutex
	subs           map[string][]domoutbox.Handler
	stateMu        sync.RWMutex // guards closed and the close of queue
	queue          chan domoutbox.Event
	closed         bool
	done           chan struct{}
	startOnce      sync.Once
	stopOnce       sync.Once
	concurrency    int
	handlerTimeout time.Duration
	log            observability.Logger
}

type Option func(*Bus)

// WithQueueSize sets the buffered queue length.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan domoutbox.Event, n)
		}
	}
}

// WithConcurrency caps the handlers run in parallel for one event.
func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// NewBus creates a bus with a buffered queue and a concurrency cap.
func NewBus(tel observability.Observability, opts ...Option) *Bus {
	if tel == nil {
		tel = observability.Nop()
	}
	b := &Bus{
		subs:           make(map[string][]domoutbox.Handler),
		queue:          make(chan domoutbox.Event, 1024), // buffer for backpressure
		done:           make(chan struct{}),
		concurrency:    8, // per-event handler fanout cap
		handlerTimeout: 30 * time.Second,
		log:            tel.Logger().With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events and waits for queued ones to be handled or for ctx to end.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.stateMu.Lock()
		b.closed = true
		close(b.queue)
		b.stateMu.Unlock()

		// Start was never called: nothing drains the queue.
		started := true
		b.startOnce.Do(func() { started = false })

		logger := logctx.FromOr(ctx, b.log)
		if started {
			select {
			case <-b.done:
			case <-ctx.Done():
				logger.Warn("event_bus_drain_aborted", observability.F("pending", len(b.queue)))
			}
		}
		logger.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted",
			observability.Err(ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.subMu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.subMu.RUnlock()

	baseLogger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		baseLogger.Debug("event_dropped_no_subscriber")
		return
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					baseLogger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
			defer cancel()
			hctx = logctx.With(hctx, baseLogger)
			if err := h(hctx, e); err != nil {
				baseLogger.Warn("event_handler_error",
					observability.Err(err),
				)
			}
		}()
	}

	wg.Wait()

	baseLogger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
	)
}
