package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	dominv "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService  = "inventory-client"
	useCaseStockCheck = "inventory.verify"
	useCaseCommit     = "inventory.commit"
)

// StockLine pairs a priced item with whether the inventory can cover it.
type StockLine struct {
	Item     domorder.Item
	HasStock bool
}

type StockReport struct {
	Lines   []StockLine
	Success bool
}

// Items returns the priced items in cart order.
func (r *StockReport) Items() []domorder.Item {
	out := make([]domorder.Item, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, l.Item)
	}
	return out
}

// Insufficient returns exactly the products whose stock is short, in cart order.
func (r *StockReport) Insufficient() []uuid.UUID {
	var out []uuid.UUID
	for _, l := range r.Lines {
		if !l.HasStock {
			out = append(out, l.Item.ProductID())
		}
	}
	return out
}

type VerifyStockInput struct {
	Lines []domorder.CartLine
}

// VerifyStockUseCase looks up every line sequentially and prices it from the catalogue.
type VerifyStockUseCase struct {
	catalog Catalog
	obs     application.Instrumentation
}

func NewVerifyStockUseCase(catalog Catalog, tel observability.Observability) *VerifyStockUseCase {
	return &VerifyStockUseCase{
		catalog: catalog,
		obs:     application.NewInstrumentation(tel, inventoryService),
	}
}

// Execute returns a report for every line. Any lookup failure aborts the whole
// verification; a short line only clears Success.
func (uc *VerifyStockUseCase) Execute(ctx context.Context, cmd VerifyStockInput) (_ *StockReport, err error) {
	ctx, run := uc.obs.Begin(ctx, useCaseStockCheck, "VerifyStock",
		attribute.Int("cart.lines", len(cmd.Lines)),
	)
	defer func() { run.End(err) }()

	report := &StockReport{Lines: make([]StockLine, 0, len(cmd.Lines)), Success: true}
	for _, line := range cmd.Lines {
		product, lookupErr := uc.catalog.GetProduct(ctx, line.ProductID)
		if lookupErr != nil {
			if errors.Is(lookupErr, dominv.ErrMalformedProduct) {
				run.Fail("PRODUCT_CONTRACT_VIOLATION")
				return nil, failure.NewInventoryContract(lookupErr)
			}
			run.Fail("INVENTORY_UNAVAILABLE")
			return nil, failure.NewInventoryUnavailable(lookupErr)
		}

		item, itemErr := domorder.NewItem(line.ProductID, line.Quantity, product.Price, product.Name, product.Brand)
		if itemErr != nil {
			run.Fail("PRODUCT_CONTRACT_VIOLATION")
			return nil, failure.NewInventoryContract(fmt.Errorf("product %s: %w", line.ProductID, itemErr))
		}

		covered := product.Covers(line.Quantity)
		if !covered {
			report.Success = false
		}
		report.Lines = append(report.Lines, StockLine{Item: item, HasStock: covered})
	}

	if !report.Success {
		short := report.Insufficient()
		run.Note("STOCK_SHORT")
		run.Annotate(observability.F("insufficient_products", len(short)))
		run.Span().SetAttributes(attribute.Int("stock.insufficient", len(short)))
	}
	return report, nil
}
