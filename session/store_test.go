package session

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/payload"
)

func testRecord() *interfaces.IdentityRecord {
	return &interfaces.IdentityRecord{
		Country:     "Nigeria",
		IDNumber:    "NGA-12345678901",
		FullName:    "Adaeze Obi",
		DateOfBirth: time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
	}
}

func testPrepared() *PreparedData {
	return &PreparedData{
		Jurisdiction:    566,
		Level:           interfaces.LevelIDLookup,
		Source:          interfaces.SourceGovernmentID,
		VerifierVersion: interfaces.VerifierVersion,
		NameHash:        payload.NameHash("Adaeze Obi"),
		IsHuman:         true,
		IsOver18:        true,
	}
}

func newTestStore(ttl time.Duration) *Store {
	return NewStore(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateGetDelete(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")
	require.NotEmpty(t, sess.ID)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nigeria", got.Country)
	assert.Equal(t, "policy-v1", got.PolicyID)

	store.Delete(sess.ID)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)

	// Double delete is a no-op.
	store.Delete(sess.ID)
}

func TestPreparedRequiresRecord(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")
	prepared, err := store.Prepared(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uint16(566), prepared.Jurisdiction)

	_, err = store.Prepared("missing")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestBindWalletNormalizes(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")
	require.NoError(t, store.BindWallet(sess.ID, "0xABCDEF"))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.WalletAddress("0xabcdef"), got.Wallet)

	assert.ErrorIs(t, store.BindWallet("missing", "0x01"), interfaces.ErrSessionNotFound)
}

func TestFaceMatchUpgradesLevel(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")
	require.NoError(t, store.SetFaceMatch(sess.ID, FaceMatchResult{Matched: true, Score: 0.97}))

	prepared, err := store.Prepared(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.LevelFaceMatch, prepared.Level)
}

func TestExpiry(t *testing.T) {
	store := newTestStore(50 * time.Millisecond)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")

	// Expiry is visible on read even before the sweep runs.
	store.now = func() time.Time { return time.Now().Add(time.Minute) }
	_, err := store.Get(sess.ID)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestCopiesDoNotAliasStore(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")
	sess.Prepared.Jurisdiction = 1

	prepared, err := store.Prepared(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uint16(566), prepared.Jurisdiction)
}

func TestGetReturnsDetachedCopy(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()

	sess := store.Create(testRecord(), testPrepared(), "policy-v1")
	require.NoError(t, store.SetFaceMatch(sess.ID, FaceMatchResult{Matched: true, Score: 0.9}))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	got.Record.FullName = "Someone Else"
	got.FaceMatch.Matched = false
	got.Wallet = "0xtampered"

	again, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Adaeze Obi", again.Record.FullName)
	assert.True(t, again.FaceMatch.Matched)
	assert.Empty(t, again.Wallet)
}
