package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	first, err := NewULID()
	require.NoError(t, err)
	require.Len(t, first, 26)
	require.True(t, IsULID(first))

	second, err := NewULID()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestValidateULID(t *testing.T) {
	require.NoError(t, ValidateULID("01HQZX3Y4K6F7G8H9J0K1M2N3P"))
	require.NoError(t, ValidateULID("01hqzx3y4k6f7g8h9j0k1m2n3p"))
	require.NoError(t, ValidateULID("  01HQZX3Y4K6F7G8H9J0K1M2N3P  "))

	require.ErrorIs(t, ValidateULID(""), ErrInvalidULID)
	require.ErrorIs(t, ValidateULID("too-short"), ErrInvalidULID)
	// I, L, O, U are excluded from Crockford Base32
	require.ErrorIs(t, ValidateULID("01HQZX3Y4K6F7G8H9J0K1M2NIL"), ErrInvalidULID)
	require.ErrorIs(t, ValidateULID("4b336551-2398-4a5d-b5a9-f4a9e9f0a0d1"), ErrInvalidULID)
}

func TestValidateUUID(t *testing.T) {
	require.NoError(t, ValidateUUID(NewUUID()))
	require.ErrorIs(t, ValidateUUID("01HQZX3Y4K6F7G8H9J0K1M2N3P"), ErrInvalidUUID)
	require.ErrorIs(t, ValidateUUID(""), ErrInvalidUUID)
}
