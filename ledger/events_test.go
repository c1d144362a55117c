package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

func TestDecodeMintRequested(t *testing.T) {
	ev := interfaces.LedgerEvent{
		Type:       "0xpkg::attestation::MintRequested",
		ParsedJSON: json.RawMessage(`{"request_id":"0xREQ","requester":"0xABC","fee_mist":"5000000"}`),
	}
	fields, err := DecodeMintRequested(ev)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ObjectID("0xreq"), fields.RequestID)
	assert.Equal(t, interfaces.WalletAddress("0xabc"), fields.Requester)
	assert.Equal(t, uint64(5000000), fields.FeeMist)
}

func TestDecodeMintRequestedCamelCase(t *testing.T) {
	ev := interfaces.LedgerEvent{
		Type:       "0xpkg::attestation::MintRequested",
		ParsedJSON: json.RawMessage(`{"requestId":"0xREQ","requester":"0xABC","feeMist":5000000}`),
	}
	fields, err := DecodeMintRequested(ev)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ObjectID("0xreq"), fields.RequestID)
	assert.Equal(t, uint64(5000000), fields.FeeMist)
}

func TestDecodeMintRequestedMissingFields(t *testing.T) {
	ev := interfaces.LedgerEvent{
		Type:       "0xpkg::attestation::MintRequested",
		ParsedJSON: json.RawMessage(`{"fee_mist":"1"}`),
	}
	_, err := DecodeMintRequested(ev)
	assert.Error(t, err)

	_, err = DecodeMintRequested(interfaces.LedgerEvent{Type: "x"})
	assert.Error(t, err)
}

func TestDecodeAttestationIssued(t *testing.T) {
	ev := interfaces.LedgerEvent{
		Type:       "0xpkg::attestation::AttestationIssued",
		ParsedJSON: json.RawMessage(`{"attestation_id":"0xATT","recipient":"0xDEF","request_id":"0xREQ"}`),
	}
	fields, err := DecodeAttestationIssued(ev)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ObjectID("0xatt"), fields.AttestationID)
	assert.Equal(t, interfaces.WalletAddress("0xdef"), fields.Recipient)
	assert.Equal(t, interfaces.ObjectID("0xreq"), fields.RequestID)
}

func TestDecodeAttestationObject(t *testing.T) {
	now := time.UnixMilli(2_000_000)

	obj := &interfaces.LedgerObject{
		ObjectID: "0xatt",
		Type:     "0xpkg::attestation::Attestation",
		Fields:   json.RawMessage(`{"jurisdiction":"566","level":2,"issued_at_ms":"1000000","expires_at_ms":"3000000","revoked":false}`),
	}
	summary, err := DecodeAttestation(obj, now)
	require.NoError(t, err)
	assert.Equal(t, uint16(566), summary.Jurisdiction)
	assert.Equal(t, interfaces.AttestationActive, summary.Status)
	assert.True(t, summary.Valid)

	obj.Fields = json.RawMessage(`{"jurisdiction":566,"level":2,"issued_at_ms":1,"expires_at_ms":100,"revoked":false}`)
	summary, err = DecodeAttestation(obj, now)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AttestationExpired, summary.Status)
	assert.False(t, summary.Valid)

	obj.Fields = json.RawMessage(`{"jurisdiction":566,"level":2,"issued_at_ms":1,"expires_at_ms":3000000,"revoked":true}`)
	summary, err = DecodeAttestation(obj, now)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AttestationRevoked, summary.Status)
	assert.False(t, summary.Valid)
}

func TestFlexInt64(t *testing.T) {
	var page wireEventPage
	raw := `{"data":[{"id":{"txDigest":"D1","eventSeq":"7"},"type":"t","sender":"0xA","timestampMs":"1700000000000","parsedJson":{}}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &page))
	require.Len(t, page.Data, 1)

	ev := page.Data[0].toLedgerEvent()
	assert.Equal(t, uint64(7), ev.EventSeq)
	assert.Equal(t, int64(1700000000000), ev.TimestampMs)
	assert.Equal(t, interfaces.WalletAddress("0xa"), ev.Sender)
}

func TestAddressForPublicKey(t *testing.T) {
	pub := make([]byte, 32)
	addr := AddressForPublicKey(pub)
	assert.Len(t, string(addr), 2+64)
	assert.Equal(t, addr, addr.Normalized())
}
