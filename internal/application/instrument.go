package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instrumentation holds the RED instruments shared by every use case of a service.
type Instrumentation struct {
	tracer observability.Tracer
	log    observability.Logger

	// RED metrics (supplied via DI; do not instantiate inside methods).
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstrumentation(tel observability.Observability, service string) Instrumentation {
	if tel == nil {
		tel = observability.Nop()
	}
	return Instrumentation{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Logger is the service logger, without request fields.
func (i Instrumentation) Logger() observability.Logger { return i.log }

// Run is one in-flight use case execution. End must be called exactly once.
type Run struct {
	inst    Instrumentation
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Begin opens the use case span and binds the request logger.
func (i Instrumentation) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := logctx.FromOr(ctx, i.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := i.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	ctx = logctx.With(ctx, logger)
	return ctx, &Run{
		inst:    i,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (r *Run) Span() trace.Span             { return r.span }
func (r *Run) Logger() observability.Logger { return r.logger }

// Fail marks the run as failed with a stable, low-cardinality status text.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Note sets the status text without changing the outcome.
func (r *Run) Note(status string) { r.status = status }

// Annotate adds fields to the final use_case_done log.
func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records RED metrics and emits use_case_done.
func (r *Run) End(err error) {
	if err != nil && r.outcome == "success" {
		r.outcome, r.status = "error", "UNCLASSIFIED"
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.inst.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.inst.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.Err(err))
	}

	r.logger.Info("use_case_done", fields...)
}
