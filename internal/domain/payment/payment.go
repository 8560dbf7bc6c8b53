package payment

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable marks transport failures and 5xx answers from the payment service.
	ErrUnavailable = errors.New("payment: service unavailable")
	// ErrDeclined marks an explicit refusal, including a success answer without an order record.
	ErrDeclined = errors.New("payment: declined")
)

// Charge is what the orchestrator asks the payment service to capture.
type Charge struct {
	Cart            map[string]int
	PaymentMethodID string
	Amount          decimal.Decimal
	Currency        string
}

// Receipt is the payment service's answer. OrderRecord is the collaborator's order
// document, passed through to the client untouched apart from the discount echo.
type Receipt struct {
	OrderID         string
	PaymentIntentID string
	ClientSecret    string
	OrderRecord     json.RawMessage
}
