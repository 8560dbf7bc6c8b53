// Package failure classifies why an order request stopped. Every error returned by
// the placement use case carries exactly one Kind; transports map kinds to responses.
package failure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	Validation           Kind = "validation"
	StockInsufficient    Kind = "stock_insufficient"
	InventoryContract    Kind = "inventory_contract"
	PromotionContract    Kind = "promotion_contract"
	InventoryUnavailable Kind = "inventory_unavailable"
	PromotionUnavailable Kind = "promotion_unavailable"
	PaymentUnavailable   Kind = "payment_unavailable"
	PaymentDeclined      Kind = "payment_declined"
	// Unknown is reported by KindOf for errors that were never classified.
	Unknown Kind = "unknown"
)

type Error struct {
	Kind     Kind
	Message  string
	Products []uuid.UUID
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	ok := errors.As(err, &fe)
	return fe, ok
}

func NewValidation(err error) *Error {
	return &Error{Kind: Validation, Err: err}
}

// NewStockInsufficient names exactly the products that could not be covered.
func NewStockInsufficient(products []uuid.UUID) *Error {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.String())
	}
	return &Error{
		Kind:     StockInsufficient,
		Message:  fmt.Sprintf("Not enough stock for products: %s", strings.Join(ids, ", ")),
		Products: append([]uuid.UUID(nil), products...),
	}
}

func NewInventoryContract(err error) *Error {
	return &Error{Kind: InventoryContract, Message: "inventory returned an invalid product record", Err: err}
}

func NewInventoryUnavailable(err error) *Error {
	return &Error{Kind: InventoryUnavailable, Message: "inventory service unavailable", Err: err}
}

func NewPromotionContract(err error) *Error {
	return &Error{Kind: PromotionContract, Message: "promotions returned an invalid quote", Err: err}
}

func NewPromotionUnavailable(err error) *Error {
	return &Error{Kind: PromotionUnavailable, Message: "promotions service unavailable", Err: err}
}

func NewPaymentUnavailable(err error) *Error {
	return &Error{Kind: PaymentUnavailable, Message: "payment service unavailable", Err: err}
}

func NewPaymentDeclined(err error) *Error {
	return &Error{Kind: PaymentDeclined, Message: "Payment failed", Err: err}
}
