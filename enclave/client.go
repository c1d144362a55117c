package enclave

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// Client reaches the enclave daemon over its Unix domain socket and
// implements interfaces.Signer. The socket lives on the local filesystem;
// nothing off-host can reach the signer.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a signer client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// Sign sends the serialized payload to the enclave and returns its signature.
// Transport failures surface as ErrUpstreamUnavailable; an explicit refusal
// from the enclave is returned verbatim and is not retryable.
func (c *Client) Sign(ctx context.Context, data []byte) (*interfaces.SignResult, error) {
	reqBody, err := json.Marshal(SignRequest{PayloadHex: hex.EncodeToString(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign request: %w", err)
	}

	// The host part is ignored by the Unix socket transport.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://enclave/sign", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: enclave unreachable: %v", interfaces.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var parsed SignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid enclave response: %v", interfaces.ErrUpstreamUnavailable, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("enclave refused to sign: %s", parsed.Error)
	}

	signature, err := hex.DecodeString(parsed.SignatureHex)
	if err != nil {
		return nil, fmt.Errorf("enclave returned invalid signature encoding: %w", err)
	}
	publicKey, err := hex.DecodeString(parsed.PublicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("enclave returned invalid public key encoding: %w", err)
	}
	return &interfaces.SignResult{Signature: signature, PublicKey: publicKey}, nil
}

var _ interfaces.Signer = (*Client)(nil)
