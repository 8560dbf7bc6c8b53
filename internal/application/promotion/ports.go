package promotion

import (
	"context"

	dompromo "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/promotion"
)

// Quoter is the outbound port to the promotions service.
type Quoter interface {
	Quote(ctx context.Context, req dompromo.QuoteRequest) (*dompromo.Quote, error)
}
