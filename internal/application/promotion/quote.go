package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	dompromo "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/promotion"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	promotionService = "promotion-client"
	useCaseQuote     = "promotion.quote"
)

type QuoteDiscountInput struct {
	Items []domorder.Item
}

type QuoteDiscountResult struct {
	Discount decimal.Decimal
	Lines    []dompromo.QuotedLine
}

// QuoteDiscountUseCase asks the promotions service for per-line discounts and
// sums them. It never mutates anything.
type QuoteDiscountUseCase struct {
	quoter      Quoter
	evaluatedAt *time.Time
	obs         application.Instrumentation
}

type Option func(*QuoteDiscountUseCase)

// WithEvaluationTime pins the instant promotions are evaluated at. Meant for replays.
func WithEvaluationTime(t time.Time) Option {
	return func(uc *QuoteDiscountUseCase) {
		t = t.UTC()
		uc.evaluatedAt = &t
	}
}

func NewQuoteDiscountUseCase(quoter Quoter, tel observability.Observability, opts ...Option) *QuoteDiscountUseCase {
	uc := &QuoteDiscountUseCase{
		quoter: quoter,
		obs:    application.NewInstrumentation(tel, promotionService),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *QuoteDiscountUseCase) Execute(ctx context.Context, cmd QuoteDiscountInput) (_ *QuoteDiscountResult, err error) {
	ctx, run := uc.obs.Begin(ctx, useCaseQuote, "QuoteDiscount",
		attribute.Int("order.items", len(cmd.Items)),
	)
	defer func() { run.End(err) }()

	req := dompromo.QuoteRequest{EvaluatedAt: uc.evaluatedAt, Lines: make([]dompromo.QuoteLine, 0, len(cmd.Items))}
	requested := make(map[uuid.UUID]struct{}, len(cmd.Items))
	for _, it := range cmd.Items {
		req.Lines = append(req.Lines, dompromo.QuoteLine{
			ProductID: it.ProductID(),
			Quantity:  it.Quantity(),
			UnitPrice: it.UnitPrice(),
		})
		requested[it.ProductID()] = struct{}{}
	}

	quote, quoteErr := uc.quoter.Quote(ctx, req)
	if quoteErr != nil {
		if errors.Is(quoteErr, dompromo.ErrMalformedQuote) {
			run.Fail("QUOTE_CONTRACT_VIOLATION")
			return nil, failure.NewPromotionContract(quoteErr)
		}
		run.Fail("PROMOTIONS_UNAVAILABLE")
		return nil, failure.NewPromotionUnavailable(quoteErr)
	}

	for _, l := range quote.Lines {
		if l.DiscountAmount.IsNegative() {
			run.Fail("QUOTE_CONTRACT_VIOLATION")
			return nil, failure.NewPromotionContract(fmt.Errorf("%w: negative discount %s for product %s",
				dompromo.ErrMalformedQuote, l.DiscountAmount, l.ProductID))
		}
		if _, ok := requested[l.ProductID]; !ok {
			run.Fail("QUOTE_CONTRACT_VIOLATION")
			return nil, failure.NewPromotionContract(fmt.Errorf("%w: unexpected product %s",
				dompromo.ErrMalformedQuote, l.ProductID))
		}
	}

	discount := quote.TotalDiscount()
	run.Annotate(observability.F("discount", discount.String()))
	run.Span().SetAttributes(attribute.String("order.discount", discount.String()))
	return &QuoteDiscountResult{Discount: discount, Lines: quote.Lines}, nil
}
