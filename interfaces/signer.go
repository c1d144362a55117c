package interfaces

import "context"

// SignResult is a successful enclave signature over a serialized mint payload.
type SignResult struct {
	// Signature is the ed25519 signature over the payload bytes.
	Signature []byte

	// PublicKey is the enclave's ed25519 public key, returned so callers can
	// sanity check which key signed without a separate round trip.
	PublicKey []byte
}

// Signer produces attestation-authorizing signatures. The production
// implementation lives behind a host-local secure channel; the enclave key
// never enters the backend process. A failed signature is fatal for the
// current finalize attempt and is never retried internally.
type Signer interface {
	Sign(ctx context.Context, payload []byte) (*SignResult, error)
}
