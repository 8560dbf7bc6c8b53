package promotion

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnavailable    = errors.New("promotion: service unavailable")
	ErrMalformedQuote = errors.New("promotion: malformed quote")
)

// QuoteLine is one priced line submitted for evaluation.
type QuoteLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// QuoteRequest asks the promotions service to price a basket. A nil EvaluatedAt
// lets the service use its own clock.
type QuoteRequest struct {
	EvaluatedAt *time.Time
	Lines       []QuoteLine
}

// QuotedLine is the service's answer for one product.
type QuotedLine struct {
	ProductID      uuid.UUID
	DiscountRate   decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalUnitPrice decimal.Decimal
}

type Quote struct {
	Lines []QuotedLine
}

// TotalDiscount is the exact sum of every line's DiscountAmount.
func (q Quote) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range q.Lines {
		total = total.Add(l.DiscountAmount)
	}
	return total
}
