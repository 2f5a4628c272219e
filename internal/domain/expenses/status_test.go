package expenses

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionFromSubmitted(t *testing.T) {
	for _, to := range []Status{StatusReadyToPay, StatusValidated, StatusDeclined, StatusFlagged} {
		require.True(t, CanTransition(StatusSubmitted, to), "submitted -> %s", to)
	}
	require.False(t, CanTransition(StatusSubmitted, StatusPaid))
	require.False(t, CanTransition(StatusSubmitted, StatusSubmitted))
}

func TestCanTransitionFromFlagged(t *testing.T) {
	for _, to := range []Status{StatusReadyToPay, StatusValidated, StatusDeclined} {
		require.True(t, CanTransition(StatusFlagged, to), "flagged -> %s", to)
	}
	require.False(t, CanTransition(StatusFlagged, StatusPaid))
	require.False(t, CanTransition(StatusFlagged, StatusFlagged))
}

func TestCanTransitionReadyToPay(t *testing.T) {
	require.True(t, CanTransition(StatusReadyToPay, StatusPaid))
	require.False(t, CanTransition(StatusReadyToPay, StatusDeclined))
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []Status{StatusValidated, StatusDeclined, StatusPaid} {
		require.True(t, IsTerminal(status), "%s should be terminal", status)
		for _, to := range []Status{StatusSubmitted, StatusReadyToPay, StatusValidated, StatusDeclined, StatusFlagged, StatusPaid} {
			require.False(t, CanTransition(status, to), "%s -> %s", status, to)
		}
	}
	require.False(t, IsTerminal(StatusSubmitted))
	require.False(t, IsTerminal(StatusFlagged))
	require.False(t, IsTerminal(StatusReadyToPay))
}

func TestValidateTransitionTypeGating(t *testing.T) {
	err := ValidateTransition(TypeNonReimbursable, StatusSubmitted, StatusReadyToPay)
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, ValidateTransition(TypeNonReimbursable, StatusSubmitted, StatusValidated))
	require.NoError(t, ValidateTransition(TypeReimbursable, StatusSubmitted, StatusReadyToPay))
	require.NoError(t, ValidateTransition(TypePayable, StatusReadyToPay, StatusPaid))
}

func TestValidateTransitionBadEdge(t *testing.T) {
	err := ValidateTransition(TypeReimbursable, StatusPaid, StatusSubmitted)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
