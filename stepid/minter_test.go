package stepid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		CommitmentEpoch: 1,
		WorkerCIDR:      "10.0.0.0/16",
		PodIP:           "10.0.3.4",
		AllowSpins:      MaxSpins,
	}
}

func TestMinter_NextIDMonotonic(t *testing.T) {
	m, err := NewMinter(testConfig())
	require.NoError(t, err)

	var last uint64
	for i := 0; i < 10000; i++ {
		id, err := m.NextID()
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}
}

func TestMinter_NextIDUnique(t *testing.T) {
	m, err := NewMinter(testConfig())
	require.NoError(t, err)

	seen := make(map[uint64]bool)
	for i := 0; i < 10000; i++ {
		id, err := m.NextID()
		require.NoError(t, err)
		require.False(t, seen[id], "id %d minted twice", id)
		seen[id] = true
	}
}

func TestMinter_NextIDStringIsURLSafe(t *testing.T) {
	m, err := NewMinter(testConfig())
	require.NoError(t, err)

	s, err := m.NextIDString()
	require.NoError(t, err)
	require.NotEmpty(t, s)
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		require.True(t, ok, "non url-safe rune %q in %s", r, s)
	}
}

func TestNewMinter_RejectsPublicIP(t *testing.T) {
	cfg := testConfig()
	cfg.PodIP = "8.8.8.8"
	_, err := NewMinter(cfg)
	require.ErrorIs(t, err, ErrBadPodIP)
}

func TestNewMinter_RejectsBadCIDR(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCIDR = "not-a-cidr"
	_, err := NewMinter(cfg)
	require.ErrorIs(t, err, ErrBadWorkerCIDR)
}
