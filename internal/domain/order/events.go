package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventCompleted             = "order.completed"
	EventAborted               = "order.aborted"
	EventInventoryCommitFailed = "order.inventory_commit_failed"
)

// LineSnapshot is the event view of an order line.
type LineSnapshot struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func snapshot(items []Item) []LineSnapshot {
	out := make([]LineSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, LineSnapshot{ProductID: it.productID.String(), Quantity: it.quantity, UnitPrice: it.unitPrice})
	}
	return out
}

// CompletedEvent is emitted once payment is captured and stock committed.
type CompletedEvent struct {
	EventType       string          `json:"eventType"`
	OrderID         string          `json:"orderId"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	FinalAmount     decimal.Decimal `json:"finalAmount"`
	Currency        string          `json:"currency"`
	Items           []LineSnapshot  `json:"items"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

func (CompletedEvent) EventName() string  { return EventCompleted }
func (e CompletedEvent) EventKey() string { return e.OrderID }

func NewCompletedEvent(o *Order) CompletedEvent {
	return CompletedEvent{
		EventType:       EventCompleted,
		OrderID:         o.ID,
		PaymentIntentID: o.PaymentIntentID,
		TotalAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		FinalAmount:     o.FinalAmount,
		Currency:        o.Payment.currency,
		Items:           snapshot(o.Items),
		OccurredAt:      time.Now().UTC(),
	}
}

// AbortedEvent is emitted when a saga stops before payment is captured.
type AbortedEvent struct {
	EventType  string    `json:"eventType"`
	RequestID  string    `json:"requestId,omitempty"`
	Stage      string    `json:"stage"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason"`
	Products   []string  `json:"products,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (AbortedEvent) EventName() string  { return EventAborted }
func (e AbortedEvent) EventKey() string { return e.RequestID }

func NewAbortedEvent(requestID, stage, kind, reason string, products []string) AbortedEvent {
	return AbortedEvent{
		EventType:  EventAborted,
		RequestID:  requestID,
		Stage:      stage,
		Kind:       kind,
		Reason:     reason,
		Products:   products,
		OccurredAt: time.Now().UTC(),
	}
}

// InventoryCommitFailedEvent flags an order whose payment was captured but whose stock
// decrement did not complete. Nothing compensates it automatically.
type InventoryCommitFailedEvent struct {
	EventType       string          `json:"eventType"`
	OrderID         string          `json:"orderId"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	FinalAmount     decimal.Decimal `json:"finalAmount"`
	Currency        string          `json:"currency"`
	Committed       []string        `json:"committed"`
	Pending         []LineSnapshot  `json:"pending"`
	Reason          string          `json:"reason"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

func (InventoryCommitFailedEvent) EventName() string  { return EventInventoryCommitFailed }
func (e InventoryCommitFailedEvent) EventKey() string { return e.OrderID }

// NewInventoryCommitFailedEvent records which products were already decremented.
func NewInventoryCommitFailedEvent(o *Order, committed []string, reason string) InventoryCommitFailedEvent {
	done := make(map[string]struct{}, len(committed))
	for _, id := range committed {
		done[id] = struct{}{}
	}
	pending := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := done[it.productID.String()]; !ok {
			pending = append(pending, it)
		}
	}
	return InventoryCommitFailedEvent{
		EventType:       EventInventoryCommitFailed,
		OrderID:         o.ID,
		PaymentIntentID: o.PaymentIntentID,
		FinalAmount:     o.FinalAmount,
		Currency:        o.Payment.currency,
		Committed:       append([]string{}, committed...),
		Pending:         snapshot(pending),
		Reason:          reason,
		OccurredAt:      time.Now().UTC(),
	}
}
