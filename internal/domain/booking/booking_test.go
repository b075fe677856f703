package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionsFollowRank(t *testing.T) {
	for from, nexts := range transitions {
		for _, to := range nexts {
			assert.Greater(t, rank[to], rank[from], "%s -> %s must move forward", from, to)
		}
	}
}

func TestEveryStatusIsRanked(t *testing.T) {
	for _, s := range AllStatuses() {
		_, ok := rank[s]
		assert.True(t, ok, "status %s has no rank", s)
	}
}

func TestNoReturnToPendingStates(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.False(t, CanTransition(s, StatusPendingPayment), "%s -> pending_payment", s)
		assert.False(t, CanTransition(s, StatusUpcoming), "%s -> upcoming", s)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.False(t, Status("unknown").Terminal())

	for _, to := range AllStatuses() {
		assert.False(t, CanTransition(StatusCompleted, to))
		assert.False(t, CanTransition(StatusRefunded, to))
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPendingPayment, StatusConfirmed))
	assert.True(t, CanTransition(StatusPaymentFailed, StatusConfirmed))
	assert.True(t, CanTransition(StatusConfirmed, StatusRefundInitiated))
	assert.True(t, CanTransition(StatusCancelled, StatusRefunded))
	assert.False(t, CanTransition(StatusConfirmed, StatusPaymentFailed))
	assert.False(t, CanTransition(StatusRefundInitiated, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
}

func TestAmountIncludesPenaltyFee(t *testing.T) {
	b := &Booking{Price: 800, PenaltyFee: 150}
	assert.Equal(t, int64(950), b.Amount())
}
