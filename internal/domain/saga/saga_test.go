package saga_test

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPathVisitsEveryStage(t *testing.T) {
	s := saga.New()
	for _, next := range []saga.State{
		saga.StateStockChecked,
		saga.StatePromotionApplied,
		saga.StatePaymentCaptured,
		saga.StateInventoryCommitted,
		saga.StateResponded,
	} {
		require.NoError(t, s.Advance(next))
	}

	assert.Equal(t, saga.StateResponded, s.State())
	assert.True(t, s.State().Terminal())
	assert.Len(t, s.History(), 6)
}

func TestAdvanceRejectsSkips(t *testing.T) {
	s := saga.New()

	err := s.Advance(saga.StatePaymentCaptured)

	assert.ErrorIs(t, err, saga.ErrInvalidTransition)
	assert.Equal(t, saga.StateReceived, s.State())
}

func TestAbortRecordsStageAndCause(t *testing.T) {
	s := saga.New()
	require.NoError(t, s.Advance(saga.StateStockChecked))
	cause := errors.New("promotions down")

	require.NoError(t, s.Abort(cause))

	assert.Equal(t, saga.StateAborted, s.State())
	assert.Equal(t, saga.StateStockChecked, s.AbortedAt())
	assert.Same(t, cause, s.Cause())
	assert.ErrorIs(t, s.Advance(saga.StatePromotionApplied), saga.ErrInvalidTransition)
	assert.ErrorIs(t, s.Abort(cause), saga.ErrInvalidTransition)
}

func TestResult(t *testing.T) {
	ok := saga.From(3, nil)
	assert.False(t, ok.Failed())
	assert.Equal(t, 3, ok.Value)

	bad := saga.From(0, errors.New("x"))
	assert.True(t, bad.Failed())
}
