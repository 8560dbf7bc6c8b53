package order

// orderState implements the state pattern for the order lifecycle:
// PENDING -> STOCK_CONFIRMED -> PAYMENT_CONFIRMED -> COMPLETED, with FAILED and
// CANCELLED reachable from any non-terminal state.
type orderState interface {
	status() Status
	onStockConfirmed(o *Order) (orderState, error)
	onPaymentConfirmed(o *Order, orderID, paymentIntentID, clientSecret string) (orderState, error)
	onCompleted(o *Order) (orderState, error)
	onFailed(o *Order, reason string) (orderState, error)
	onCancelled(o *Order, reason string) (orderState, error)
}

func stateFor(s Status) orderState {
	switch s {
	case StatusStockConfirmed:
		return stockConfirmedState{}
	case StatusPaymentConfirmed:
		return paymentConfirmedState{}
	case StatusCompleted:
		return completedState{}
	case StatusFailed:
		return failedState{}
	case StatusCancelled:
		return cancelledState{}
	default:
		return pendingState{}
	}
}

// open holds the absorbing transitions shared by every non-terminal state.
type open struct{}

func (open) onFailed(o *Order, reason string) (orderState, error) {
	o.FailureReason = reason
	return failedState{}, nil
}

func (open) onCancelled(o *Order, reason string) (orderState, error) {
	o.FailureReason = reason
	return cancelledState{}, nil
}

// closed rejects everything; terminal states embed it.
type closed struct{}

func (closed) onStockConfirmed(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }
func (closed) onPaymentConfirmed(*Order, string, string, string) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (closed) onCompleted(*Order) (orderState, error)         { return nil, ErrInvalidStateTransition }
func (closed) onFailed(*Order, string) (orderState, error)    { return nil, ErrInvalidStateTransition }
func (closed) onCancelled(*Order, string) (orderState, error) { return nil, ErrInvalidStateTransition }

type pendingState struct{ open }

func (pendingState) status() Status { return StatusPending }

func (pendingState) onStockConfirmed(*Order) (orderState, error) {
	return stockConfirmedState{}, nil
}

func (pendingState) onPaymentConfirmed(*Order, string, string, string) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (pendingState) onCompleted(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type stockConfirmedState struct{ open }

func (stockConfirmedState) status() Status { return StatusStockConfirmed }

func (stockConfirmedState) onStockConfirmed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (stockConfirmedState) onPaymentConfirmed(o *Order, orderID, paymentIntentID, clientSecret string) (orderState, error) {
	o.ID = orderID
	o.PaymentIntentID = paymentIntentID
	o.ClientSecret = clientSecret
	return paymentConfirmedState{}, nil
}

func (stockConfirmedState) onCompleted(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type paymentConfirmedState struct{ open }

func (paymentConfirmedState) status() Status { return StatusPaymentConfirmed }

func (paymentConfirmedState) onStockConfirmed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paymentConfirmedState) onPaymentConfirmed(*Order, string, string, string) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paymentConfirmedState) onCompleted(o *Order) (orderState, error) {
	o.FailureReason = ""
	return completedState{}, nil
}

type completedState struct{ closed }

func (completedState) status() Status { return StatusCompleted }

type failedState struct{ closed }

func (failedState) status() Status { return StatusFailed }

type cancelledState struct{ closed }

func (cancelledState) status() Status { return StatusCancelled }
