package inventory

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable marks transport failures and non-success answers from the inventory service.
	ErrUnavailable = errors.New("inventory: service unavailable")
	// ErrMalformedProduct marks a product record that violates the data contract.
	ErrMalformedProduct = errors.New("inventory: malformed product record")
)

// Product is the inventory service's view of a catalogue entry.
type Product struct {
	ID    uuid.UUID
	Name  string
	Brand string
	Price decimal.Decimal
	Stock int
}

// Covers reports whether the on-hand stock satisfies quantity.
func (p Product) Covers(quantity int) bool {
	return p.Stock >= quantity
}
