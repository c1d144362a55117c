package mint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/consumption"
	"github.com/suirifyprotocol/suirify-sub000/enclave"
	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/ledger"
	"github.com/suirifyprotocol/suirify-sub000/payload"
	"github.com/suirifyprotocol/suirify-sub000/resolver"
	"github.com/suirifyprotocol/suirify-sub000/session"
)

const (
	testWallet      = interfaces.WalletAddress("0x00aa")
	testRequestID   = interfaces.ObjectID("0x0c01")
	testRequestType = "0xpkg::attestation::MintRequestCreated"
	testIssuedType  = "0xpkg::attestation::AttestationIssued"
	testObjectType  = "0xpkg::attestation::Attestation"
)

func testConfig() Config {
	return Config{
		PackageID:             "0xpkg",
		RegistryID:            "0xreg",
		MoveModule:            "attestation",
		MintFunction:          "finalize_mint",
		MintFeeMist:           1_000_000_000,
		MintRequestEventType:  testRequestType,
		AttestationEventType:  testIssuedType,
		AttestationObjectType: testObjectType,
	}
}

type fixture struct {
	mock     *ledger.MockClient
	store    *consumption.Store
	guard    *consumption.Guard
	sessions *session.Store
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := consumption.NewStore(filepath.Join(t.TempDir(), "ledger.json"), bytes.Repeat([]byte{0x11}, 32), logger)
	require.NoError(t, err)
	guard := consumption.NewGuard(store, logger)

	sessions := session.NewStore(0, logger)
	t.Cleanup(sessions.Close)

	signer, err := enclave.NewSimpleSigner(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	mock := ledger.NewMockClient()
	res := resolver.New(mock, guard, testRequestType, 0, logger)
	orch := NewOrchestrator(testConfig(), sessions, guard, store, res, enclave.NewLocalSigner(signer), mock, nil, logger)

	return &fixture{mock: mock, store: store, guard: guard, sessions: sessions, orch: orch}
}

// newSession creates a verified session with testWallet already bound, the
// state finalize expects after complete-verification.
func (f *fixture) newSession(t *testing.T, country, idNumber, fullName string) *session.Session {
	t.Helper()
	record := &interfaces.IdentityRecord{
		Country:     country,
		IDNumber:    idNumber,
		FullName:    fullName,
		DateOfBirth: time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
	}
	prepared := &session.PreparedData{
		Jurisdiction:    566,
		Level:           interfaces.LevelIDLookup,
		Source:          interfaces.SourceGovernmentID,
		VerifierVersion: interfaces.VerifierVersion,
		NameHash:        payload.NameHash(fullName),
		IsHuman:         true,
		IsOver18:        true,
	}
	sess := f.sessions.Create(record, prepared, "test-policy")
	require.NoError(t, f.sessions.BindWallet(sess.ID, testWallet))
	return sess
}

func (f *fixture) addMintRequestEvent(requestID interfaces.ObjectID, requester interfaces.WalletAddress, ts int64) {
	f.mock.AddEvent(interfaces.LedgerEvent{
		Type:        testRequestType,
		TxDigest:    "tx-request",
		TimestampMs: ts,
		Sender:      requester,
		ParsedJSON:  []byte(`{"request_id":"` + string(requestID) + `","requester":"` + string(requester) + `"}`),
	})
}

func mintedResult(attestationID interfaces.ObjectID) *interfaces.TransactionResult {
	return &interfaces.TransactionResult{
		Digest: "tx-mint",
		ObjectChanges: []interfaces.ObjectChange{
			{Kind: "created", ObjectType: testObjectType, ObjectID: attestationID, Owner: testWallet},
		},
	}
}

func validAttestationObject(id interfaces.ObjectID) interfaces.LedgerObject {
	return interfaces.LedgerObject{
		ObjectID: id,
		Type:     testObjectType,
		Fields:   []byte(`{"jurisdiction":566,"level":1,"issued_at_ms":1700000000000,"expires_at_ms":0,"revoked":false}`),
	}
}

func TestFinalizeMints(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)
	f.mock.SubmitFunc = func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
		return mintedResult("0x0a77"), nil
	}

	result, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, interfaces.TransactionDigest("tx-mint"), result.TxDigest)
	assert.Equal(t, interfaces.ObjectID("0x0a77"), result.AttestationID)
	assert.Equal(t, testRequestID, result.RequestID)

	// Both guard namespaces are marked and the session is gone.
	assert.True(t, f.guard.IsMintRequestConsumed(testRequestID))
	assert.True(t, f.guard.HasUsedGovID("NG", "NGA-12345678901").Used)
	_, err = f.sessions.Get(sess.ID)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)

	// The submitted call carries payload, signature, and public key.
	require.Len(t, f.mock.SubmitCalls, 1)
	call := f.mock.SubmitCalls[0]
	assert.Equal(t, "finalize_mint", call.Function)
	require.Len(t, call.Arguments, 5)
	encoded, ok := call.Arguments[2].([]byte)
	require.True(t, ok)
	assert.Len(t, encoded, payload.EncodedSize)
}

func TestFinalizeGovIDAlreadyUsed(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)

	_, err := f.guard.MarkUsedGovID("NG", "NGA-12345678901", interfaces.ConsumptionEntry{
		Wallet:    "0x0bb",
		EventType: interfaces.ConsumptionMintCompleted,
		Source:    "test",
	})
	require.NoError(t, err)

	_, err = f.orch.Finalize(context.Background(), sess.ID, "", "")
	assert.ErrorIs(t, err, interfaces.ErrGovIDAlreadyUsed)
	assert.Empty(t, f.mock.SubmitCalls)
}

func TestFinalizeRequestAlreadyConsumed(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)

	_, err := f.guard.MarkMintRequestConsumed(testRequestID, interfaces.ConsumptionEntry{
		Wallet:    testWallet,
		EventType: interfaces.ConsumptionMintCompleted,
		Source:    "test",
	})
	require.NoError(t, err)

	// The corroborated preferred id is still rejected once consumed.
	_, err = f.orch.Finalize(context.Background(), sess.ID, testRequestID, "")
	assert.ErrorIs(t, err, interfaces.ErrRequestAlreadyConsumed)
	assert.Empty(t, f.mock.SubmitCalls)
}

func TestFinalizeNoPendingRequest(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")

	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	assert.ErrorIs(t, err, interfaces.ErrNoPendingMintRequest)
}

func TestFinalizeSessionMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Finalize(context.Background(), "no-such-session", "", "")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestFinalizeWalletUnbound(t *testing.T) {
	f := newFixture(t)
	record := &interfaces.IdentityRecord{
		Country:     "NG",
		IDNumber:    "NGA-12345678901",
		FullName:    "Adaeze Obi",
		DateOfBirth: time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
	}
	sess := f.sessions.Create(record, &session.PreparedData{Jurisdiction: 566}, "test-policy")
	f.addMintRequestEvent(testRequestID, testWallet, 100)

	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	assert.ErrorIs(t, err, interfaces.ErrWalletNotBound)
	assert.Empty(t, f.mock.SubmitCalls)
}

func TestFinalizeExistingAttestation(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)
	f.mock.AddOwnedObject(testWallet, validAttestationObject("0x0a11"))

	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	assert.ErrorIs(t, err, interfaces.ErrAttestationAlreadyHeld)
	assert.Empty(t, f.mock.SubmitCalls)

	// The duplicate still consumes both the request and the identity so the
	// same attempt is not replayed forever.
	assert.True(t, f.guard.IsMintRequestConsumed(testRequestID))
	assert.True(t, f.guard.HasUsedGovID("NG", "NGA-12345678901").Used)
}

func TestFinalizeRevokedAttestationDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)
	f.mock.AddOwnedObject(testWallet, interfaces.LedgerObject{
		ObjectID: "0x0a11",
		Type:     testObjectType,
		Fields:   []byte(`{"jurisdiction":566,"level":1,"issued_at_ms":1,"expires_at_ms":0,"revoked":true}`),
	})
	f.mock.SubmitFunc = func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
		return mintedResult("0x0a77"), nil
	}

	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	require.NoError(t, err)
}

func TestFinalizeTransientFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)
	f.mock.SubmitFunc = func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
		return nil, errors.New("fullnode timeout")
	}

	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	require.Error(t, err)

	// Nothing was consumed, the session survives, and a retry succeeds.
	assert.False(t, f.guard.IsMintRequestConsumed(testRequestID))
	assert.False(t, f.guard.HasUsedGovID("NG", "NGA-12345678901").Used)
	_, err = f.sessions.Get(sess.ID)
	require.NoError(t, err)

	f.mock.SubmitFunc = func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
		return mintedResult("0x0a77"), nil
	}
	result, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, interfaces.ObjectID("0x0a77"), result.AttestationID)
}

func TestFinalizeSingleFlightPerSession(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	f.mock.SubmitFunc = func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
		close(entered)
		<-proceed
		return mintedResult("0x0a77"), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
		done <- err
	}()

	<-entered
	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	assert.ErrorIs(t, err, interfaces.ErrFinalizeInFlight)

	close(proceed)
	require.NoError(t, <-done)
}

func TestFinalizeRecordsPendingMint(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, "NG", "NGA-12345678901", "Adaeze Obi")
	f.addMintRequestEvent(testRequestID, testWallet, 100)

	var recorded []interfaces.PendingMint
	f.orch.pending = pendingFunc(func(p interfaces.PendingMint) { recorded = append(recorded, p) })
	f.mock.SubmitFunc = func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
		return mintedResult("0x0a77"), nil
	}

	_, err := f.orch.Finalize(context.Background(), sess.ID, "", "")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, testRequestID, recorded[0].RequestID)
	assert.Equal(t, "NGA-12345678901", recorded[0].IDNumber)
}

type pendingFunc func(interfaces.PendingMint)

func (f pendingFunc) RecordPending(p interfaces.PendingMint) { f(p) }
func (f pendingFunc) TakePending(requestID interfaces.ObjectID) (*interfaces.PendingMint, bool) {
	return nil, false
}

func TestWalletStatus(t *testing.T) {
	f := newFixture(t)

	status := f.orch.WalletStatus(context.Background(), testWallet)
	assert.False(t, status.HasRequest)
	assert.Nil(t, status.PendingRequest)
	assert.Nil(t, status.Attestation)

	f.addMintRequestEvent(testRequestID, testWallet, 100)
	status = f.orch.WalletStatus(context.Background(), testWallet)
	assert.True(t, status.HasRequest)
	require.NotNil(t, status.PendingRequest)
	assert.Equal(t, testRequestID, status.PendingRequest.RequestID)

	f.mock.AddOwnedObject(testWallet, validAttestationObject("0x0a11"))
	status = f.orch.WalletStatus(context.Background(), testWallet)
	require.NotNil(t, status.Attestation)
	assert.True(t, status.Attestation.Valid)
	assert.False(t, status.HasRequest)
	assert.Nil(t, status.PendingRequest)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.RegistryID = ""
	assert.Error(t, missing.Validate())

	badKey := cfg
	badKey.EnclavePublicKeyHex = "not-hex"
	assert.Error(t, badKey.Validate())
}
