package order

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// CartLine is one raw line of client input. The same product may appear on several lines.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// Normalize merges lines that share a product by summing their quantities. Distinct
// products keep the order in which they were first seen.
func Normalize(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	merged := make([]CartLine, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, ErrMissingProduct
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s has quantity %d", ErrInvalidQuantity, line.ProductID, line.Quantity)
		}
		if i, ok := index[line.ProductID]; ok {
			if merged[i].Quantity > math.MaxInt-line.Quantity {
				return nil, fmt.Errorf("%w: product %s total quantity overflows", ErrInvalidQuantity, line.ProductID)
			}
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}
