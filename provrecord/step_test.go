package provrecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewStep_RejectsMissingType(t *testing.T) {
	_, err := NewStep("id-1", time.Now(), map[string]any{"foo": "bar"}, []string{"foo"})
	require.ErrorIs(t, err, ErrStepMissingType)
}

func TestNewStep_RejectsCallerSuppliedID(t *testing.T) {
	_, err := NewStep("id-1", time.Now(), map[string]any{"type": "x", "id": "nope"}, []string{"type", "id"})
	require.ErrorIs(t, err, ErrStepHasID)
}

func TestNewStep_RejectsUnderscoreKeys(t *testing.T) {
	_, err := NewStep("id-1", time.Now(), map[string]any{"type": "x", "_hidden": "y"}, []string{"type", "_hidden"})
	require.ErrorIs(t, err, ErrStepReservedKey)
}

func TestStep_EncodeDecodeRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err := NewStep("id-1", now, map[string]any{
		"type":   "data.origination",
		"member": "IB1.member.example",
	}, []string{"type", "member"})
	require.NoError(t, err)

	encoded, err := EncodeStep(s)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeStep(encoded)
	require.NoError(t, err)
	require.Equal(t, "id-1", decoded.ID())
	require.Equal(t, "data.origination", decoded.Type())

	reencoded, err := EncodeStep(decoded)
	require.NoError(t, err)
	require.Equal(t, encoded, reencoded)
}

func TestDecodeStep_RejectsMissingType(t *testing.T) {
	// base64url of {"id":"x"}: a well-formed step object with no type.
	_, err := DecodeStep("eyJpZCI6IngifQ")
	require.ErrorIs(t, err, ErrStepMissingType)
}
