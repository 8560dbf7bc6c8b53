package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart              = errors.New("order: cart must contain at least one item")
	ErrMissingProduct         = errors.New("order: product id is required")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount          = errors.New("order: amount must be zero or greater")
	ErrDiscountExceedsTotal   = errors.New("order: discount exceeds order total")
	ErrInvalidPaymentMethod   = errors.New("order: payment method id is required")
	ErrInvalidCurrency        = errors.New("order: currency must be a three letter code")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
)

// DefaultCurrency applies when the client omits one.
const DefaultCurrency = "sgd"

type Status string

const (
	StatusPending          Status = "PENDING"
	StatusStockConfirmed   Status = "STOCK_CONFIRMED"
	StatusPaymentConfirmed Status = "PAYMENT_CONFIRMED"
	StatusCompleted        Status = "COMPLETED"
	StatusCancelled        Status = "CANCELLED"
	StatusFailed           Status = "FAILED"
)

// Item is a priced order line. It is immutable; build it with NewItem.
type Item struct {
	productID uuid.UUID
	quantity  int
	unitPrice decimal.Decimal
	name      string
	brand     string
}

func NewItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal, name, brand string) (Item, error) {
	if productID == uuid.Nil {
		return Item{}, ErrMissingProduct
	}
	if quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return Item{}, fmt.Errorf("%w: unit price %s", ErrInvalidAmount, unitPrice)
	}
	return Item{productID: productID, quantity: quantity, unitPrice: unitPrice, name: name, brand: brand}, nil
}

func (i Item) ProductID() uuid.UUID       { return i.productID }
func (i Item) Quantity() int              { return i.quantity }
func (i Item) UnitPrice() decimal.Decimal { return i.unitPrice }
func (i Item) Name() string               { return i.name }
func (i Item) Brand() string              { return i.brand }

// Subtotal is unit price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.unitPrice.Mul(decimal.NewFromInt(int64(i.quantity)))
}

// PaymentInstrument identifies how the customer pays.
type PaymentInstrument struct {
	methodID string
	currency string
}

// NewPaymentInstrument validates the method id and currency. An empty currency
// falls back to DefaultCurrency; the code is stored lower-cased.
func NewPaymentInstrument(methodID, currency string) (PaymentInstrument, error) {
	methodID = strings.TrimSpace(methodID)
	if methodID == "" {
		return PaymentInstrument{}, ErrInvalidPaymentMethod
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return PaymentInstrument{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	for _, r := range currency {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return PaymentInstrument{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
		}
	}
	return PaymentInstrument{methodID: methodID, currency: strings.ToLower(currency)}, nil
}

func (p PaymentInstrument) MethodID() string { return p.methodID }
func (p PaymentInstrument) Currency() string { return p.currency }

// Order is the per-request aggregate. Amounts are fixed at assembly and
// FinalAmount always equals TotalAmount minus DiscountAmount.
type Order struct {
	ID              string
	Items           []Item
	Payment         PaymentInstrument
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalAmount     decimal.Decimal
	PaymentIntentID string
	ClientSecret    string
	FailureReason   string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time

	state orderState
}

// Assemble prices the verified items and applies the discount. The discount must lie
// within [0, total]; it is never clamped. The result starts in STOCK_CONFIRMED.
func Assemble(items []Item, instrument PaymentInstrument, discount decimal.Decimal, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if instrument.methodID == "" {
		return nil, ErrInvalidPaymentMethod
	}
	if discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount %s", ErrInvalidAmount, discount)
	}

	total := decimal.Zero
	for _, it := range items {
		if it.quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		total = total.Add(it.Subtotal())
	}
	if discount.GreaterThan(total) {
		return nil, fmt.Errorf("%w: discount %s, total %s", ErrDiscountExceedsTotal, discount, total)
	}

	now = now.UTC()
	o := &Order{
		Items:          append([]Item(nil), items...),
		Payment:        instrument,
		TotalAmount:    total,
		DiscountAmount: discount,
		FinalAmount:    total.Sub(discount),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.setState(pendingState{})
	if err := o.ConfirmStock(); err != nil {
		return nil, err
	}
	return o, nil
}

// Quantities maps each product to its ordered quantity, the shape the payment collaborator expects.
func (o *Order) Quantities() map[string]int {
	out := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		out[it.productID.String()] = it.quantity
	}
	return out
}

func (o *Order) ConfirmStock() error {
	return o.apply(func(s orderState) (orderState, error) { return s.onStockConfirmed(o) })
}

// ConfirmPayment records the collaborator-issued identity and payment secrets.
func (o *Order) ConfirmPayment(orderID, paymentIntentID, clientSecret string) error {
	return o.apply(func(s orderState) (orderState, error) {
		return s.onPaymentConfirmed(o, orderID, paymentIntentID, clientSecret)
	})
}

func (o *Order) Complete() error {
	return o.apply(func(s orderState) (orderState, error) { return s.onCompleted(o) })
}

func (o *Order) Fail(reason string) error {
	return o.apply(func(s orderState) (orderState, error) { return s.onFailed(o, reason) })
}

func (o *Order) Cancel(reason string) error {
	return o.apply(func(s orderState) (orderState, error) { return s.onCancelled(o, reason) })
}

func (o *Order) apply(transition func(orderState) (orderState, error)) error {
	next, err := transition(o.currentState())
	if err != nil {
		return err
	}
	o.setState(next)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Order) currentState() orderState {
	if o.state == nil {
		o.state = stateFor(o.Status)
	}
	return o.state
}

func (o *Order) setState(s orderState) {
	o.state = s
	o.Status = s.status()
}
