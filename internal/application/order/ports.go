package order

import (
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	appinventory "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/inventory"
	apppay "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/payment"
	apppromo "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/promotion"
)

type (
	StockVerifier      = application.UseCase[appinventory.VerifyStockInput, *appinventory.StockReport]
	DiscountQuoter     = application.UseCase[apppromo.QuoteDiscountInput, *apppromo.QuoteDiscountResult]
	PaymentCapturer    = application.UseCase[apppay.CapturePaymentInput, *apppay.CapturePaymentResult]
	InventoryCommitter = application.UseCase[appinventory.CommitStockInput, *appinventory.CommitStockResult]
)

// Stages are the saga steps, run strictly in field order.
type Stages struct {
	Stock   StockVerifier
	Quote   DiscountQuoter
	Capture PaymentCapturer
	Commit  InventoryCommitter
}
