package workerpresentation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	workerService = "saga-event-worker"
	sinkPeer      = "event_sink"
	useCase       = "order.worker.saga_event"
	spanName      = "Worker.SagaEvent"
)

// SagaEventWorker consumes saga outcome events from the in-process bus, logs and
// counts them, and forwards them to an external sink when one is configured.
type SagaEventWorker struct {
	subscriber domoutbox.Subscriber
	sink       domoutbox.Sink
	tel        observability.Observability
	log        observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	eventCounter observability.Counter   // saga_events_total{event,outcome}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewSagaEventWorker builds the worker. sink may be nil.
func NewSagaEventWorker(subscriber domoutbox.Subscriber, sink domoutbox.Sink, tel observability.Observability) *SagaEventWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &SagaEventWorker{
		subscriber:   subscriber,
		sink:         sink,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", workerService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		eventCounter: m.Counter(observability.MSagaEvents),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (w *SagaEventWorker) Start() {
	if w.subscriber == nil {
		return
	}
	for _, name := range []string{
		domorder.EventCompleted,
		domorder.EventAborted,
		domorder.EventInventoryCommitFailed,
	} {
		w.subscriber.Subscribe(name, w.handle)
	}
}

func (w *SagaEventWorker) handle(ctx context.Context, e domoutbox.Event) (err error) {
	name := e.EventName()
	key := ""
	if k, ok := e.(domoutbox.Keyed); ok {
		key = k.EventKey()
	}

	ctx, span := w.tel.Tracer().Start(ctx, spanName,
		attribute.String("use_case", useCase),
		attribute.String("event", name),
	)
	start := time.Now()

	ctx = WithEventContext(ctx, w.log.With(observability.F("use_case", useCase)), e)
	logger := logctx.FromOr(ctx, w.log)

	outcome := "logged"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		lat := time.Since(start).Seconds()
		w.eventCounter.Add(1, observability.L("event", name), observability.L("outcome", outcome))
		w.reqCounter.Add(1, observability.L("use_case", useCase), observability.L("outcome", outcome))
		w.durHistogram.Observe(lat, observability.L("use_case", useCase))

		logger.Info("use_case_done",
			observability.F("outcome", outcome),
			observability.F("latency_seconds", lat),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, outcome)
		}
		span.End()
	}()

	switch evt := e.(type) {
	case domorder.InventoryCommitFailedEvent:
		logger.Error("saga_inconsistency",
			observability.F("committed_products", len(evt.Committed)),
			observability.F("pending_products", len(evt.Pending)),
			observability.F("reason", evt.Reason),
		)
	case domorder.AbortedEvent:
		logger.Info("saga_aborted",
			observability.F("reason", evt.Reason),
			observability.F("products", len(evt.Products)),
		)
	case domorder.CompletedEvent:
		logger.Info("saga_completed",
			observability.F("final_amount", evt.FinalAmount.String()),
		)
	default:
		outcome = "ignored"
		return nil
	}

	if w.sink == nil {
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("saga event %s: encode: %w", name, err)
	}

	sendStart := time.Now()
	sendErr := w.sink.Send(ctx, name, key, payload)
	sendOutcome := "success"
	if sendErr != nil {
		sendOutcome = "error"
	}
	w.extCounter.Add(1,
		observability.L("peer", sinkPeer),
		observability.L("endpoint", name),
		observability.L("outcome", sendOutcome),
	)
	w.extHistogram.Observe(time.Since(sendStart).Seconds(),
		observability.L("peer", sinkPeer),
		observability.L("endpoint", name),
	)
	if sendErr != nil {
		return sendErr
	}
	outcome = "forwarded"
	return nil
}
