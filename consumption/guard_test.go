package consumption

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewStore(filepath.Join(t.TempDir(), "ledger.json"), testPepper, logger)
	require.NoError(t, err)
	return NewGuard(store, logger)
}

func TestGuardNamespacesAreIndependent(t *testing.T) {
	guard := newTestGuard(t)

	_, err := guard.MarkUsedGovID("Nigeria", "NGA-1", interfaces.ConsumptionEntry{
		EventType: interfaces.ConsumptionMintCompleted,
		Source:    "finalize",
	})
	require.NoError(t, err)

	// Marking the gov-id must not touch the request namespace, and vice
	// versa: a stale request stays independently blockable.
	assert.True(t, guard.HasUsedGovID("Nigeria", "NGA-1").Used)
	assert.False(t, guard.IsMintRequestConsumed("0xreq"))

	_, err = guard.MarkMintRequestConsumed("0xREQ", interfaces.ConsumptionEntry{
		EventType: interfaces.ConsumptionExistingAttestation,
		Source:    "finalize",
	})
	require.NoError(t, err)
	assert.True(t, guard.IsMintRequestConsumed("0xreq"))
	assert.False(t, guard.HasUsedGovID("Nigeria", "NGA-2").Used)
}

func TestGuardRepeatedMarksAccumulate(t *testing.T) {
	guard := newTestGuard(t)

	// The same identity legitimately passes through the mark twice across a
	// retry: existing-attestation detection first, finalize success later.
	_, err := guard.MarkUsedGovID("Nigeria", "NGA-1", interfaces.ConsumptionEntry{
		EventType: interfaces.ConsumptionExistingAttestation,
		Source:    "finalize",
	})
	require.NoError(t, err)
	rec, err := guard.MarkUsedGovID("Nigeria", "NGA-1", interfaces.ConsumptionEntry{
		EventType: interfaces.ConsumptionMintCompleted,
		Source:    "indexer",
	})
	require.NoError(t, err)
	assert.Len(t, rec.History, 2)
}

func TestGuardNormalizationFallbackIsFlagged(t *testing.T) {
	guard := newTestGuard(t)

	check := guard.HasUsedGovID("Atlantis", "ATL-1")
	assert.False(t, check.Used)
	assert.True(t, check.NormalizedFallback)

	check = guard.HasUsedGovID("Nigeria", "NGA-1")
	assert.False(t, check.NormalizedFallback)
}
