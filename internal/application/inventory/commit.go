package inventory

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrCommitIncomplete means at least one decrement failed after payment was captured.
var ErrCommitIncomplete = errors.New("inventory: stock commit incomplete")

type CommitStockInput struct {
	Items []domorder.Item
}

type CommitStockResult struct {
	// Committed lists the product ids whose stock was reduced, in call order.
	Committed []string
}

// CommitStockUseCase decrements stock for every item, one call per item.
type CommitStockUseCase struct {
	catalog Catalog
	obs     application.Instrumentation
}

func NewCommitStockUseCase(catalog Catalog, tel observability.Observability) *CommitStockUseCase {
	return &CommitStockUseCase{
		catalog: catalog,
		obs:     application.NewInstrumentation(tel, inventoryService),
	}
}

// Execute stops at the first failed decrement. The partial result is returned
// alongside the error so callers can report what was already applied.
func (uc *CommitStockUseCase) Execute(ctx context.Context, cmd CommitStockInput) (_ *CommitStockResult, err error) {
	ctx, run := uc.obs.Begin(ctx, useCaseCommit, "CommitStock",
		attribute.Int("order.items", len(cmd.Items)),
	)
	defer func() { run.End(err) }()

	result := &CommitStockResult{Committed: make([]string, 0, len(cmd.Items))}
	for _, it := range cmd.Items {
		if reduceErr := uc.catalog.ReduceStock(ctx, it.ProductID(), it.Quantity()); reduceErr != nil {
			run.Fail("REDUCE_STOCK_FAILED")
			run.Annotate(
				observability.F("failed_product", it.ProductID().String()),
				observability.F("committed", len(result.Committed)),
			)
			return result, failure.New(failure.InventoryUnavailable,
				"inventory commit failed after payment",
				errors.Join(ErrCommitIncomplete, reduceErr),
			)
		}
		result.Committed = append(result.Committed, it.ProductID().String())
		run.Span().AddEvent("inventory.stock_reduced",
			trace.WithAttributes(attribute.String("product.id", it.ProductID().String())),
		)
	}
	return result, nil
}
