// Package saga models the orchestration of one order request as an explicit
// state machine. Each stage may only advance to its single successor; any
// non-terminal state may abort.
package saga

import (
	"errors"
	"fmt"
)

type State string

const (
	StateReceived           State = "RECEIVED"
	StateStockChecked       State = "STOCK_CHECKED"
	StatePromotionApplied   State = "PROMOTION_APPLIED"
	StatePaymentCaptured    State = "PAYMENT_CAPTURED"
	StateInventoryCommitted State = "INVENTORY_COMMITTED"
	StateResponded          State = "RESPONDED"
	StateAborted            State = "ABORTED"
)

var ErrInvalidTransition = errors.New("saga: invalid transition")

var successor = map[State]State{
	StateReceived:           StateStockChecked,
	StateStockChecked:       StatePromotionApplied,
	StatePromotionApplied:   StatePaymentCaptured,
	StatePaymentCaptured:    StateInventoryCommitted,
	StateInventoryCommitted: StateResponded,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateResponded || s == StateAborted
}

// Saga tracks a single request. It is not safe for concurrent use; a request owns it.
type Saga struct {
	state     State
	abortedAt State
	cause     error
	history   []State
}

func New() *Saga {
	return &Saga{state: StateReceived, history: []State{StateReceived}}
}

func (s *Saga) State() State { return s.state }

// AbortedAt is the state the saga was in when it aborted, empty otherwise.
func (s *Saga) AbortedAt() State { return s.abortedAt }

// Cause is the error recorded by Abort.
func (s *Saga) Cause() error { return s.cause }

// History lists every state visited, in order.
func (s *Saga) History() []State { return append([]State(nil), s.history...) }

// Advance moves to next, which must be the immediate successor of the current state.
func (s *Saga) Advance(next State) error {
	want, ok := successor[s.state]
	if !ok || want != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, next)
	}
	s.state = next
	s.history = append(s.history, next)
	return nil
}

// Abort records cause and moves to ABORTED. Aborting a terminal saga is an error.
func (s *Saga) Abort(cause error) error {
	if s.state.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StateAborted)
	}
	s.abortedAt = s.state
	s.cause = cause
	s.state = StateAborted
	s.history = append(s.history, StateAborted)
	return nil
}

// Result is a stage's typed outcome: either a value or the error that ends the saga.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func Fail[T any](err error) Result[T] { return Result[T]{Err: err} }

// From adapts a (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

func (r Result[T]) Failed() bool { return r.Err != nil }
