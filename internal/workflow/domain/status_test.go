package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "github.com/doerdesk/doerdesk-backend/internal/ledger/domain"
)

func TestStatusIsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid(), "status %s should be valid", s)
	}
	assert.False(t, Status("archived").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusRefunded} {
		require.True(t, s.IsTerminal())
		for _, to := range AllStatuses {
			assert.False(t, CanTransition(s, to), "%s -> %s should not be allowed", s, to)
		}
	}
}

func TestEveryEdgeTargetIsValid(t *testing.T) {
	for from, tos := range transitions {
		require.True(t, from.IsValid(), "source %s", from)
		for _, to := range tos {
			require.True(t, to.IsValid(), "target %s from %s", to, from)
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Run("happy path edges", func(t *testing.T) {
		path := []Status{
			StatusDraft, StatusSubmitted, StatusAnalyzing, StatusQuoted,
			StatusPaymentPending, StatusPaid, StatusAssigning, StatusAssigned,
			StatusInProgress, StatusSubmittedForQC, StatusQCInProgress,
			StatusQCApproved, StatusDelivered, StatusCompleted,
		}
		for i := 0; i < len(path)-1; i++ {
			assert.True(t, CanTransition(path[i], path[i+1]),
				"%s -> %s should be an edge", path[i], path[i+1])
		}
	})

	t.Run("no skipping ahead", func(t *testing.T) {
		assert.False(t, CanTransition(StatusSubmitted, StatusCompleted))
		assert.False(t, CanTransition(StatusDraft, StatusPaid))
		assert.False(t, CanTransition(StatusQuoted, StatusPaid))
	})

	t.Run("cancellation only before payment", func(t *testing.T) {
		for _, s := range []Status{StatusDraft, StatusSubmitted, StatusAnalyzing, StatusQuoted, StatusPaymentPending} {
			assert.True(t, CanTransition(s, StatusCancelled), "%s -> cancelled", s)
		}
		for _, s := range []Status{StatusPaid, StatusAssigned, StatusInProgress, StatusDelivered} {
			assert.False(t, CanTransition(s, StatusCancelled), "%s -> cancelled should not be an edge", s)
			assert.True(t, CanTransition(s, StatusRefunded), "%s should route out via refunded", s)
		}
	})

	t.Run("revision loop", func(t *testing.T) {
		assert.True(t, CanTransition(StatusDelivered, StatusRevisionRequested))
		assert.True(t, CanTransition(StatusRevisionRequested, StatusInRevision))
		assert.True(t, CanTransition(StatusInRevision, StatusSubmittedForQC))
		assert.True(t, CanTransition(StatusInRevision, StatusDelivered))
		assert.True(t, CanTransition(StatusQCRejected, StatusInRevision))
	})

	t.Run("auto approval", func(t *testing.T) {
		assert.True(t, CanTransition(StatusDelivered, StatusAutoApproved))
		assert.True(t, CanTransition(StatusAutoApproved, StatusCompleted))
		assert.False(t, CanTransition(StatusAutoApproved, StatusRevisionRequested))
	})
}

func TestRequiredSideEffects(t *testing.T) {
	assert.Equal(t, []ledger.TransactionType{ledger.TxProjectPayment}, RequiredSideEffects(StatusPaid))
	assert.Equal(t, []ledger.TransactionType{ledger.TxProjectEarning, ledger.TxCommission}, RequiredSideEffects(StatusCompleted))
	assert.Equal(t, []ledger.TransactionType{ledger.TxRefund}, RequiredSideEffects(StatusRefunded))
	assert.Empty(t, RequiredSideEffects(StatusDelivered))
	assert.Empty(t, RequiredSideEffects(StatusCancelled))
}

func TestTransitionErrorUnwrap(t *testing.T) {
	err := &TransitionError{ProjectID: "p1", From: StatusSubmitted, To: StatusCompleted, Reason: ErrInvalidEdge}
	assert.ErrorIs(t, err, ErrInvalidEdge)
	assert.Contains(t, err.Error(), "submitted")
	assert.Contains(t, err.Error(), "completed")
	assert.Contains(t, err.Error(), "p1")
}
