package enclave

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/payload"
)

var testSeed = bytes.Repeat([]byte{0x42}, 32)

func testEncodedPayload(t *testing.T) []byte {
	t.Helper()
	encoded, err := payload.Encode(interfaces.MintPayload{
		RequestID:       "0x01",
		Recipient:       "0x02",
		Jurisdiction:    566,
		Level:           interfaces.LevelIDLookup,
		Source:          interfaces.SourceGovernmentID,
		NameHash:        payload.NameHash("Adaeze Obi"),
		IsHuman:         true,
		IsOver18:        true,
		VerifierVersion: interfaces.VerifierVersion,
		IssuedAtMs:      1700000000000,
	})
	require.NoError(t, err)
	return encoded
}

func TestSimpleSignerDeterministic(t *testing.T) {
	s1, err := NewSimpleSigner(testSeed)
	require.NoError(t, err)
	s2, err := NewSimpleSigner(testSeed)
	require.NoError(t, err)
	assert.Equal(t, s1.PublicKey(), s2.PublicKey())

	_, err = NewSimpleSigner([]byte("short"))
	assert.Error(t, err)
}

func TestSignPayloadVerifies(t *testing.T) {
	signer, err := NewSimpleSigner(testSeed)
	require.NoError(t, err)

	encoded := testEncodedPayload(t)
	sig, err := signer.SignPayload(encoded)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(signer.PublicKey(), encoded, sig))

	// Anything that is not a canonical payload is refused.
	_, err = signer.SignPayload([]byte("arbitrary message"))
	assert.Error(t, err)
}

func TestHandlerSign(t *testing.T) {
	signer, err := NewSimpleSigner(testSeed)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewHandler(signer, logger).Router())
	defer srv.Close()

	encoded := testEncodedPayload(t)
	reqBody, err := json.Marshal(SignRequest{PayloadHex: hex.EncodeToString(encoded)})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/sign", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed SignResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)

	sig, err := hex.DecodeString(parsed.SignatureHex)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(signer.PublicKey(), encoded, sig))
}

func TestHandlerRejectsBadPayloads(t *testing.T) {
	signer, err := NewSimpleSigner(testSeed)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewHandler(signer, logger).Router())
	defer srv.Close()

	for name, body := range map[string]string{
		"not json":     "{",
		"not hex":      `{"payloadHex":"zz"}`,
		"wrong length": `{"payloadHex":"deadbeef"}`,
	} {
		resp, err := http.Post(srv.URL+"/sign", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err, name)
		resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode, name)
	}
}

func TestLocalSigner(t *testing.T) {
	signer, err := NewSimpleSigner(testSeed)
	require.NoError(t, err)
	local := NewLocalSigner(signer)

	encoded := testEncodedPayload(t)
	result, err := local.Sign(context.Background(), encoded)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(result.PublicKey, encoded, result.Signature))

	_, err = local.Sign(context.Background(), []byte("nope"))
	assert.Error(t, err)
}
