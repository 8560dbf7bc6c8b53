package inventory

import (
	"context"

	dominv "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/inventory"
	"github.com/google/uuid"
)

// Catalog is the outbound port to the inventory service. Implementations wrap
// transport problems in dominv.ErrUnavailable and contract violations in
// dominv.ErrMalformedProduct.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*dominv.Product, error)
	ReduceStock(ctx context.Context, id uuid.UUID, quantity int) error
}
