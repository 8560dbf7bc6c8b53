package order_test

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, qty int, price string) order.Item {
	t.Helper()
	it, err := order.NewItem(uuid.New(), qty, decimal.RequireFromString(price), "Widget", "Acme")
	require.NoError(t, err)
	return it
}

func mustInstrument(t *testing.T) order.PaymentInstrument {
	t.Helper()
	pi, err := order.NewPaymentInstrument("pm_card_visa", "SGD")
	require.NoError(t, err)
	return pi
}

func TestAssembleComputesTotals(t *testing.T) {
	items := []order.Item{mustItem(t, 2, "10.00"), mustItem(t, 1, "15.00")}

	o, err := order.Assemble(items, mustInstrument(t), decimal.Zero, time.Now())

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("35.00").Equal(o.TotalAmount))
	assert.True(t, o.FinalAmount.Equal(o.TotalAmount))
	assert.Equal(t, order.StatusStockConfirmed, o.Status)
	assert.Equal(t, "sgd", o.Payment.Currency())
}

func TestAssembleAppliesDiscount(t *testing.T) {
	items := []order.Item{mustItem(t, 2, "10.00")}

	o, err := order.Assemble(items, mustInstrument(t), decimal.NewFromInt(5), time.Now())

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(o.FinalAmount))
	assert.True(t, o.FinalAmount.Equal(o.TotalAmount.Sub(o.DiscountAmount)))
}

func TestAssembleRejectsDiscountAboveTotal(t *testing.T) {
	items := []order.Item{mustItem(t, 2, "10.00")}

	_, err := order.Assemble(items, mustInstrument(t), decimal.NewFromInt(25), time.Now())
	assert.ErrorIs(t, err, order.ErrDiscountExceedsTotal)

	_, err = order.Assemble(items, mustInstrument(t), decimal.NewFromInt(-1), time.Now())
	assert.ErrorIs(t, err, order.ErrInvalidAmount)
}

func TestAssembleAllowsDiscountEqualToTotal(t *testing.T) {
	o, err := order.Assemble([]order.Item{mustItem(t, 1, "9.99")}, mustInstrument(t), decimal.RequireFromString("9.99"), time.Now())

	require.NoError(t, err)
	assert.True(t, o.FinalAmount.IsZero())
}

func TestNewItemValidation(t *testing.T) {
	_, err := order.NewItem(uuid.New(), 0, decimal.NewFromInt(1), "", "")
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)

	_, err = order.NewItem(uuid.New(), 1, decimal.NewFromInt(-1), "", "")
	assert.ErrorIs(t, err, order.ErrInvalidAmount)
}

func TestNewPaymentInstrument(t *testing.T) {
	pi, err := order.NewPaymentInstrument("pm_1", "")
	require.NoError(t, err)
	assert.Equal(t, order.DefaultCurrency, pi.Currency())

	for _, bad := range []string{"INVALID", "S1D", "us"} {
		_, err = order.NewPaymentInstrument("pm_1", bad)
		assert.ErrorIs(t, err, order.ErrInvalidCurrency, bad)
	}

	_, err = order.NewPaymentInstrument("  ", "sgd")
	assert.ErrorIs(t, err, order.ErrInvalidPaymentMethod)
}

func TestOrderLifecycle(t *testing.T) {
	o, err := order.Assemble([]order.Item{mustItem(t, 1, "5")}, mustInstrument(t), decimal.Zero, time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, o.Complete(), order.ErrInvalidStateTransition)

	require.NoError(t, o.ConfirmPayment("ord-1", "pi_1", "secret"))
	assert.Equal(t, order.StatusPaymentConfirmed, o.Status)
	assert.Equal(t, "ord-1", o.ID)

	require.NoError(t, o.Complete())
	assert.Equal(t, order.StatusCompleted, o.Status)

	assert.ErrorIs(t, o.Fail("late"), order.ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Cancel("late"), order.ErrInvalidStateTransition)
}

func TestOrderFailIsAbsorbing(t *testing.T) {
	o, err := order.Assemble([]order.Item{mustItem(t, 1, "5")}, mustInstrument(t), decimal.Zero, time.Now())
	require.NoError(t, err)

	require.NoError(t, o.Fail("payment declined"))
	assert.Equal(t, order.StatusFailed, o.Status)
	assert.Equal(t, "payment declined", o.FailureReason)
	assert.ErrorIs(t, o.ConfirmPayment("x", "", ""), order.ErrInvalidStateTransition)
}

func TestInventoryCommitFailedEventSplitsPending(t *testing.T) {
	a, b := mustItem(t, 1, "1"), mustItem(t, 2, "2")
	o, err := order.Assemble([]order.Item{a, b}, mustInstrument(t), decimal.Zero, time.Now())
	require.NoError(t, err)

	evt := order.NewInventoryCommitFailedEvent(o, []string{a.ProductID().String()}, "timeout")

	assert.Equal(t, order.EventInventoryCommitFailed, evt.EventName())
	require.Len(t, evt.Pending, 1)
	assert.Equal(t, b.ProductID().String(), evt.Pending[0].ProductID)
	assert.Equal(t, []string{a.ProductID().String()}, evt.Committed)
}
