package workerpresentation

import (
	"context"

	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext stores in ctx a logger bound to the saga event being handled:
// its name, the ids of the order or request it concerns, and the active span.
func WithEventContext(ctx context.Context, base observability.Logger, e domoutbox.Event) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	fields := append([]observability.Field{observability.F("event", e.EventName())}, eventFields(e)...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	return logctx.With(ctx, base.With(fields...))
}

func eventFields(e domoutbox.Event) []observability.Field {
	switch evt := e.(type) {
	case domorder.CompletedEvent:
		return []observability.Field{
			observability.F("order_id", evt.OrderID),
			observability.F("payment_intent_id", evt.PaymentIntentID),
		}
	case domorder.InventoryCommitFailedEvent:
		return []observability.Field{
			observability.F("order_id", evt.OrderID),
			observability.F("payment_intent_id", evt.PaymentIntentID),
		}
	case domorder.AbortedEvent:
		return []observability.Field{
			observability.F("request_id", evt.RequestID),
			observability.F("stage", evt.Stage),
			observability.F("kind", evt.Kind),
		}
	}
	if k, ok := e.(domoutbox.Keyed); ok {
		return []observability.Field{observability.F("event_key", k.EventKey())}
	}
	return nil
}
