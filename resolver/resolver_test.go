package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/ledger"
)

const testEventType = "0xpkg::attestation::MintRequestCreated"

type stubGuard struct {
	consumed map[interfaces.ObjectID]bool
}

func (g *stubGuard) HasUsedGovID(country, idNumber string) interfaces.GovIDCheck {
	return interfaces.GovIDCheck{}
}

func (g *stubGuard) MarkUsedGovID(country, idNumber string, entry interfaces.ConsumptionEntry) (*interfaces.GovIDRecord, error) {
	return nil, nil
}

func (g *stubGuard) IsMintRequestConsumed(requestID interfaces.ObjectID) bool {
	return g.consumed[requestID.Normalized()]
}

func (g *stubGuard) MarkMintRequestConsumed(requestID interfaces.ObjectID, entry interfaces.ConsumptionEntry) (*interfaces.MintRequestRecord, error) {
	g.consumed[requestID.Normalized()] = true
	return nil, nil
}

func newStubGuard(consumed ...interfaces.ObjectID) *stubGuard {
	g := &stubGuard{consumed: make(map[interfaces.ObjectID]bool)}
	for _, id := range consumed {
		g.consumed[id.Normalized()] = true
	}
	return g
}

func mintRequestEvent(requestID, requester string, timestampMs int64) interfaces.LedgerEvent {
	return interfaces.LedgerEvent{
		Type:        testEventType,
		TxDigest:    interfaces.TransactionDigest("tx-" + requestID),
		TimestampMs: timestampMs,
		Sender:      interfaces.WalletAddress(requester),
		ParsedJSON:  []byte(`{"request_id":"` + requestID + `","requester":"` + requester + `","fee_mist":"1000000000"}`),
	}
}

func newTestResolver(mock *ledger.MockClient, guard interfaces.ConsumptionGuard) *Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(mock, guard, testEventType, 0, logger)
}

func TestResolvePicksNewestUnconsumed(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))
	mock.AddEvent(mintRequestEvent("0xbbb", "0xwallet1", 200))
	mock.AddEvent(mintRequestEvent("0xccc", "0xwallet2", 300))

	r := newTestResolver(mock, newStubGuard())
	resolved := r.Resolve(context.Background(), "0xWALLET1", "", "")
	require.NotNil(t, resolved)
	assert.Equal(t, interfaces.ObjectID("0xbbb"), resolved.RequestID)
	assert.Equal(t, interfaces.WalletAddress("0xwallet1"), resolved.Requester)
	assert.Equal(t, int64(200), resolved.TimestampMs)
}

func TestResolveSkipsConsumedRequests(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))
	mock.AddEvent(mintRequestEvent("0xbbb", "0xwallet1", 200))

	r := newTestResolver(mock, newStubGuard("0xbbb"))
	resolved := r.Resolve(context.Background(), "0xwallet1", "", "")
	require.NotNil(t, resolved)
	assert.Equal(t, interfaces.ObjectID("0xaaa"), resolved.RequestID)
}

func TestResolvePreferredCorroborated(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))
	mock.AddEvent(mintRequestEvent("0xbbb", "0xwallet1", 200))

	// The older request is preferred and corroborated, so it beats the
	// newer one.
	r := newTestResolver(mock, newStubGuard())
	resolved := r.Resolve(context.Background(), "0xwallet1", "0xAAA", "")
	require.NotNil(t, resolved)
	assert.Equal(t, interfaces.ObjectID("0xaaa"), resolved.RequestID)
}

func TestResolvePreferredTxDigestCorroborated(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))
	mock.AddEvent(mintRequestEvent("0xbbb", "0xwallet1", 200))

	// The caller only knows the tx digest that created its request.
	r := newTestResolver(mock, newStubGuard())
	resolved := r.Resolve(context.Background(), "0xwallet1", "", "tx-0xaaa")
	require.NotNil(t, resolved)
	assert.Equal(t, interfaces.ObjectID("0xaaa"), resolved.RequestID)
	assert.Equal(t, interfaces.TransactionDigest("tx-0xaaa"), resolved.RequestTxDigest)
}

func TestResolvePreferredFromOtherWalletIgnored(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet2", 100))
	mock.AddEvent(mintRequestEvent("0xbbb", "0xwallet1", 200))

	// Preferred id belongs to another wallet. Falls back to the caller's
	// own request instead of honoring the supplied id.
	r := newTestResolver(mock, newStubGuard())
	resolved := r.Resolve(context.Background(), "0xwallet1", "0xaaa", "")
	require.NotNil(t, resolved)
	assert.Equal(t, interfaces.ObjectID("0xbbb"), resolved.RequestID)
}

func TestResolveNothingFound(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet2", 100))

	r := newTestResolver(mock, newStubGuard())
	assert.Nil(t, r.Resolve(context.Background(), "0xwallet1", "", ""))
}

func TestResolveAllConsumed(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))

	r := newTestResolver(mock, newStubGuard("0xaaa"))
	assert.Nil(t, r.Resolve(context.Background(), "0xwallet1", "", ""))
}

func TestResolveDegradesOnQueryFailure(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))
	mock.FailQueries(errors.New("fullnode down"))

	r := newTestResolver(mock, newStubGuard())
	assert.Nil(t, r.Resolve(context.Background(), "0xwallet1", "", ""))
}

func TestResolveSkipsUndecodableEvents(t *testing.T) {
	mock := ledger.NewMockClient()
	mock.AddEvent(interfaces.LedgerEvent{
		Type:        testEventType,
		TimestampMs: 300,
		ParsedJSON:  []byte(`{"unexpected":"shape"}`),
	})
	mock.AddEvent(mintRequestEvent("0xaaa", "0xwallet1", 100))

	r := newTestResolver(mock, newStubGuard())
	resolved := r.Resolve(context.Background(), "0xwallet1", "", "")
	require.NotNil(t, resolved)
	assert.Equal(t, interfaces.ObjectID("0xaaa"), resolved.RequestID)
}
