package payment

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService     = "payment-client"
	useCaseCapture     = "payment.capture"
	paymentSpanName    = "CapturePayment"
	statusDeclined     = "PAYMENT_DECLINED"
	statusUnavailable  = "PAYMENT_UNAVAILABLE"
	statusStateRefused = "ORDER_STATE_REFUSED"
)

type CapturePaymentInput struct {
	Order *domorder.Order
}

type CapturePaymentResult struct {
	Receipt *dompay.Receipt
}

// CapturePaymentUseCase charges the final amount once. It never retries.
type CapturePaymentUseCase struct {
	processor Processor
	obs       application.Instrumentation
}

func NewCapturePaymentUseCase(processor Processor, tel observability.Observability) *CapturePaymentUseCase {
	return &CapturePaymentUseCase{
		processor: processor,
		obs:       application.NewInstrumentation(tel, paymentService),
	}
}

// Execute submits the charge and, on success, moves the order to PAYMENT_CONFIRMED.
func (uc *CapturePaymentUseCase) Execute(ctx context.Context, cmd CapturePaymentInput) (_ *CapturePaymentResult, err error) {
	o := cmd.Order
	ctx, run := uc.obs.Begin(ctx, useCaseCapture, paymentSpanName,
		attribute.String("payment.amount", o.FinalAmount.String()),
		attribute.String("payment.currency", o.Payment.Currency()),
	)
	defer func() { run.End(err) }()

	receipt, payErr := uc.processor.Capture(ctx, dompay.Charge{
		Cart:            o.Quantities(),
		PaymentMethodID: o.Payment.MethodID(),
		Amount:          o.FinalAmount,
		Currency:        o.Payment.Currency(),
	})
	if payErr != nil {
		_ = o.Fail(payErr.Error())
		if errors.Is(payErr, dompay.ErrDeclined) {
			run.Fail(statusDeclined)
			return nil, failure.NewPaymentDeclined(payErr)
		}
		run.Fail(statusUnavailable)
		return nil, failure.NewPaymentUnavailable(payErr)
	}

	if err = o.ConfirmPayment(receipt.OrderID, receipt.PaymentIntentID, receipt.ClientSecret); err != nil {
		run.Fail(statusStateRefused)
		return nil, err
	}

	run.Annotate(observability.F("order_id", receipt.OrderID))
	run.Span().AddEvent("payment.captured",
		trace.WithAttributes(attribute.String("order.id", receipt.OrderID)),
	)
	return &CapturePaymentResult{Receipt: receipt}, nil
}
