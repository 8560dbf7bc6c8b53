package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	appinventory "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/inventory"
	apppay "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/payment"
	apppromo "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/promotion"
	domain "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/saga"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService      = "order-orchestrator"
	useCasePlaceOrder = "order.place"
	publishPeer       = "outbox"
	publishTimeout    = 300 * time.Millisecond

	stageValidate  = "validate"
	stageStock     = "stock"
	stagePromotion = "promotion"
	stageAssemble  = "assemble"
	stagePayment   = "payment"
	stageCommit    = "commit"

	reasonCommitAfterPayment = "inventory_commit_failed"
	messageCompleted         = "Order placed successfully"
)

type PlaceOrderInput struct {
	RequestID       string
	Lines           []domain.CartLine
	PaymentMethodID string
	Currency        string
}

// Summary is the client-facing projection of a placed order.
type Summary struct {
	OrderID        string
	Status         domain.Status
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	ClientSecret   string
	Message        string
}

type PlaceOrderResult struct {
	Order *domain.Order
	// OrderRecord is the payment service's order document with "discount" set.
	OrderRecord  json.RawMessage
	ClientSecret string
	Summary      Summary
	Saga         []saga.State
}

// PlaceOrderUseCase drives one order through stock check, promotion quote,
// payment capture and stock commit. Every stage failure is final.
type PlaceOrderUseCase struct {
	stages    Stages
	publisher domoutbox.Publisher
	now       func() time.Time
	obs       application.Instrumentation

	log observability.Logger

	abortCounter        observability.Counter      // saga_stage_aborts_total{stage,kind}
	inconsistentCounter observability.BoundCounter // saga_inconsistencies_total{reason="inventory_commit_failed"}
	extCounter          observability.Counter      // external_requests_total{peer,endpoint,outcome}
	extHistogram        observability.Histogram    // external_request_duration_seconds{peer,endpoint}
}

// NewPlaceOrderUseCase wires the dependencies required to execute the use case.
// publisher may be nil, in which case no saga events are emitted.
func NewPlaceOrderUseCase(stages Stages, publisher domoutbox.Publisher, tel observability.Observability) *PlaceOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	obs := application.NewInstrumentation(tel, orderService)
	metrics := tel.Metrics()
	return &PlaceOrderUseCase{
		stages:              stages,
		publisher:           publisher,
		now:                 time.Now,
		obs:                 obs,
		log:                 obs.Logger(),
		abortCounter:        metrics.Counter(observability.MSagaStageAborts),
		inconsistentCounter: metrics.Counter(observability.MSagaInconsistencies).Bind(observability.L("reason", reasonCommitAfterPayment)),
		extCounter:          metrics.Counter(observability.MExternalRequests),
		extHistogram:        metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// Execute runs the saga. Cancellation of ctx is deliberately not propagated to
// downstream calls: once started, a saga runs to a terminal state.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx = context.WithoutCancel(ctx)
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}
	ctx, run := uc.obs.Begin(ctx, useCasePlaceOrder, "PlaceOrder",
		attribute.Int("cart.lines", len(cmd.Lines)),
		attribute.String("request.id", cmd.RequestID),
	)
	defer func() { run.End(err) }()

	sg := saga.New()
	defer func() {
		run.Annotate(observability.F("saga_state", string(sg.State())))
		if sg.AbortedAt() != "" {
			run.Annotate(observability.F("saga_aborted_at", string(sg.AbortedAt())))
		}
	}()

	// validate: nothing remote has happened yet.
	lines := saga.From(domain.Normalize(cmd.Lines))
	if lines.Failed() {
		return nil, uc.abort(ctx, run, sg, cmd, stageValidate, failure.NewValidation(lines.Err))
	}
	instrument := saga.From(domain.NewPaymentInstrument(cmd.PaymentMethodID, cmd.Currency))
	if instrument.Failed() {
		return nil, uc.abort(ctx, run, sg, cmd, stageValidate, failure.NewValidation(instrument.Err))
	}

	stock := saga.From(uc.stages.Stock.Execute(ctx, appinventory.VerifyStockInput{Lines: lines.Value}))
	if stock.Failed() {
		return nil, uc.abort(ctx, run, sg, cmd, stageStock, stock.Err)
	}
	if !stock.Value.Success {
		return nil, uc.abort(ctx, run, sg, cmd, stageStock, failure.NewStockInsufficient(stock.Value.Insufficient()))
	}
	if err = sg.Advance(saga.StateStockChecked); err != nil {
		return nil, err
	}
	items := stock.Value.Items()

	quote := saga.From(uc.stages.Quote.Execute(ctx, apppromo.QuoteDiscountInput{Items: items}))
	if quote.Failed() {
		return nil, uc.abort(ctx, run, sg, cmd, stagePromotion, quote.Err)
	}
	if err = sg.Advance(saga.StatePromotionApplied); err != nil {
		return nil, err
	}

	assembled := saga.From(domain.Assemble(items, instrument.Value, quote.Value.Discount, uc.now()))
	if assembled.Failed() {
		return nil, uc.abort(ctx, run, sg, cmd, stageAssemble, failure.NewValidation(assembled.Err))
	}
	o := assembled.Value
	run.Span().SetAttributes(
		attribute.String("order.total", o.TotalAmount.String()),
		attribute.String("order.discount", o.DiscountAmount.String()),
		attribute.String("order.final", o.FinalAmount.String()),
	)

	captured := saga.From(uc.stages.Capture.Execute(ctx, apppay.CapturePaymentInput{Order: o}))
	if captured.Failed() {
		return nil, uc.abort(ctx, run, sg, cmd, stagePayment, captured.Err)
	}
	if err = sg.Advance(saga.StatePaymentCaptured); err != nil {
		return nil, err
	}
	receipt := captured.Value.Receipt

	committed, commitErr := uc.stages.Commit.Execute(ctx, appinventory.CommitStockInput{Items: o.Items})
	if commitErr != nil {
		uc.reportInconsistency(ctx, o, committed, commitErr)
		_ = o.Fail(commitErr.Error())
		return nil, uc.abort(ctx, run, sg, cmd, stageCommit, commitErr)
	}
	if err = sg.Advance(saga.StateInventoryCommitted); err != nil {
		return nil, err
	}
	if err = o.Complete(); err != nil {
		return nil, err
	}

	record, echoErr := withDiscount(receipt.OrderRecord, o.DiscountAmount)
	if echoErr != nil {
		run.Logger().Warn("order_record_not_an_object", observability.Err(echoErr))
		record = receipt.OrderRecord
	}
	if err = sg.Advance(saga.StateResponded); err != nil {
		return nil, err
	}

	uc.publish(ctx, run, domain.NewCompletedEvent(o))
	run.Annotate(observability.F("order_id", o.ID))
	run.Span().AddEvent("order.completed", trace.WithAttributes(attribute.String("order.id", o.ID)))

	return &PlaceOrderResult{
		Order:        o,
		OrderRecord:  record,
		ClientSecret: o.ClientSecret,
		Summary: Summary{
			OrderID:        o.ID,
			Status:         o.Status,
			TotalAmount:    o.TotalAmount,
			DiscountAmount: o.DiscountAmount,
			FinalAmount:    o.FinalAmount,
			ClientSecret:   o.ClientSecret,
			Message:        messageCompleted,
		},
		Saga: sg.History(),
	}, nil
}

// abort moves the saga to ABORTED and records the failure. Errors that reach here
// unclassified surface as Unknown and map to an internal error at the edge.
func (uc *PlaceOrderUseCase) abort(ctx context.Context, run *application.Run, sg *saga.Saga, cmd PlaceOrderInput, stage string, cause error) error {
	kind := failure.KindOf(cause)
	if abortErr := sg.Abort(cause); abortErr != nil {
		return errors.Join(cause, abortErr)
	}
	run.Fail(statusFor(kind))
	uc.abortCounter.Add(1,
		observability.L("stage", stage),
		observability.L("kind", string(kind)),
	)

	var products []string
	if fe, ok := failure.As(cause); ok {
		for _, p := range fe.Products {
			products = append(products, p.String())
		}
	}
	if stage != stageCommit {
		uc.publish(ctx, run, domain.NewAbortedEvent(cmd.RequestID, stage, string(kind), cause.Error(), products))
	}
	return cause
}

// statusFor names the use_case_done status for every failure kind.
func statusFor(kind failure.Kind) string {
	switch kind {
	case failure.Validation:
		return "VALIDATION_FAILED"
	case failure.StockInsufficient:
		return "STOCK_INSUFFICIENT"
	case failure.InventoryContract:
		return "INVENTORY_CONTRACT_VIOLATION"
	case failure.PromotionContract:
		return "PROMOTION_CONTRACT_VIOLATION"
	case failure.InventoryUnavailable:
		return "INVENTORY_UNAVAILABLE"
	case failure.PromotionUnavailable:
		return "PROMOTIONS_UNAVAILABLE"
	case failure.PaymentUnavailable:
		return "PAYMENT_UNAVAILABLE"
	case failure.PaymentDeclined:
		return "PAYMENT_DECLINED"
	default:
		return "UNCLASSIFIED"
	}
}

// reportInconsistency makes a captured-but-uncommitted order loud: an error log,
// a counter and an event. Nothing is compensated.
func (uc *PlaceOrderUseCase) reportInconsistency(ctx context.Context, o *domain.Order, res *appinventory.CommitStockResult, cause error) {
	var committed []string
	if res != nil {
		committed = res.Committed
	}
	uc.loggerFrom(ctx).Error("inventory_commit_failed_after_payment",
		observability.F("order_id", o.ID),
		observability.F("payment_intent_id", o.PaymentIntentID),
		observability.F("final_amount", o.FinalAmount.String()),
		observability.F("committed_products", strings.Join(committed, ",")),
		observability.Err(cause),
	)
	uc.inconsistentCounter.Add(1)
	uc.publish(ctx, nil, domain.NewInventoryCommitFailedEvent(o, committed, cause.Error()))
}

func (uc *PlaceOrderUseCase) publish(ctx context.Context, run *application.Run, event domoutbox.Event) {
	if uc.publisher == nil || event == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()
	outcome := "success"

	publishErr := uc.publisher.Publish(pubCtx, event)
	if publishErr != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		publishErr = pubCtx.Err()
	}

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
	)

	if publishErr != nil {
		uc.loggerFrom(ctx).Warn("saga_event_publish_failed",
			observability.F("event", event.EventName()),
			observability.Err(publishErr),
		)
		if run != nil {
			run.Annotate(observability.F("event_publish_error", publishErr.Error()))
		}
	}
}

// withDiscount sets "discount" on the proxied order document, keeping every other key.
func withDiscount(record json.RawMessage, discount decimal.Decimal) (json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(record, &doc); err != nil {
		return nil, fmt.Errorf("order: decode record: %w", err)
	}
	if doc == nil {
		return nil, errors.New("order: record is null")
	}
	doc["discount"] = json.RawMessage(discount.String())
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("order: encode record: %w", err)
	}
	return out, nil
}

func (uc *PlaceOrderUseCase) loggerFrom(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, uc.log)
}
