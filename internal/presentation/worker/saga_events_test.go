package workerpresentation_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/minishop-orchestrator/internal/presentation/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *subscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = map[string]domoutbox.Handler{}
	}
	s.handlers[name] = h
}

type sent struct {
	name, key string
	payload   []byte
}

type sink struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *sink) Send(_ context.Context, name, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{name: name, key: key, payload: payload})
	return nil
}

func (s *sink) Close() error { return nil }

func TestWorkerSubscribesToSagaEvents(t *testing.T) {
	sub := &subscriber{}
	workerpresentation.NewSagaEventWorker(sub, nil, nil).Start()

	assert.Contains(t, sub.handlers, domorder.EventCompleted)
	assert.Contains(t, sub.handlers, domorder.EventAborted)
	assert.Contains(t, sub.handlers, domorder.EventInventoryCommitFailed)
}

func TestWorkerForwardsWithEventType(t *testing.T) {
	sub, sk := &subscriber{}, &sink{}
	workerpresentation.NewSagaEventWorker(sub, sk, nil).Start()

	evt := domorder.NewAbortedEvent("req-1", "stock", "stock_insufficient", "Not enough stock", []string{"p2"})
	require.NoError(t, sub.handlers[domorder.EventAborted](context.Background(), evt))

	require.Len(t, sk.sent, 1)
	assert.Equal(t, domorder.EventAborted, sk.sent[0].name)
	assert.Equal(t, "req-1", sk.sent[0].key)
	var body map[string]any
	require.NoError(t, json.Unmarshal(sk.sent[0].payload, &body))
	assert.Equal(t, "order.aborted", body["eventType"])
	assert.Equal(t, "stock", body["stage"])
}

func TestWorkerReturnsSinkErrors(t *testing.T) {
	sub := &subscriber{}
	workerpresentation.NewSagaEventWorker(sub, &sink{err: errors.New("broker down")}, nil).Start()

	err := sub.handlers[domorder.EventAborted](context.Background(), domorder.NewAbortedEvent("r", "payment", "payment_declined", "declined", nil))

	assert.ErrorContains(t, err, "broker down")
}

func TestWorkerWithoutSinkOnlyLogs(t *testing.T) {
	sub := &subscriber{}
	workerpresentation.NewSagaEventWorker(sub, nil, nil).Start()

	err := sub.handlers[domorder.EventAborted](context.Background(), domorder.NewAbortedEvent("r", "stock", "validation", "bad", nil))

	assert.NoError(t, err)
}

// slowLogger delays every With, standing in for work done before the sink call.
type slowLogger struct {
	observability.Logger
	delay time.Duration
}

func (l slowLogger) With(fs ...observability.Field) observability.Logger {
	time.Sleep(l.delay)
	return slowLogger{Logger: l.Logger.With(fs...), delay: l.delay}
}

type histograms struct {
	mu  sync.Mutex
	obs map[observability.MetricKey][]float64
}

func (h *histograms) record(key observability.MetricKey, v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.obs[key] = append(h.obs[key], v)
}

type histogram struct {
	h   *histograms
	key observability.MetricKey
}

func (x histogram) Observe(v float64, _ ...observability.Label) { x.h.record(x.key, v) }
func (x histogram) Bind(...observability.Label) observability.BoundHistogram {
	return observability.NopHistogram().Bind()
}

type metrics struct{ h *histograms }

func (m metrics) Counter(observability.MetricKey) observability.Counter {
	return observability.NopCounter()
}
func (m metrics) Histogram(k observability.MetricKey) observability.Histogram {
	return histogram{h: m.h, key: k}
}

type telemetry struct {
	log     observability.Logger
	metrics observability.Metrics
}

func (t telemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t telemetry) Logger() observability.Logger   { return t.log }
func (t telemetry) Metrics() observability.Metrics { return t.metrics }

func TestWorkerDurationCoversWholeHandler(t *testing.T) {
	const delay = 20 * time.Millisecond
	hs := &histograms{obs: map[observability.MetricKey][]float64{}}
	tel := telemetry{
		log:     slowLogger{Logger: observability.NopLogger(), delay: delay},
		metrics: metrics{h: hs},
	}
	sub := &subscriber{}
	workerpresentation.NewSagaEventWorker(sub, &sink{}, tel).Start()

	err := sub.handlers[domorder.EventAborted](context.Background(), domorder.NewAbortedEvent("r", "stock", "validation", "bad", nil))

	require.NoError(t, err)
	require.Len(t, hs.obs[observability.MUsecaseDuration], 1)
	require.Len(t, hs.obs[observability.MExternalRequestDuration], 1)
	useCase := hs.obs[observability.MUsecaseDuration][0]
	send := hs.obs[observability.MExternalRequestDuration][0]
	assert.GreaterOrEqual(t, useCase, delay.Seconds())
	assert.Greater(t, useCase, send)
}
