package enclave

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/suirifyprotocol/suirify-sub000/payload"
)

// SimpleSigner derives its ed25519 signing key deterministically from a
// 32-byte seed. The seed is the enclave's entire secret; operators provision
// it out of band and it is distinct from the backend's sponsor key.
type SimpleSigner struct {
	key ed25519.PrivateKey
}

// NewSimpleSigner creates a signer from the provided seed.
func NewSimpleSigner(seed []byte) (*SimpleSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("enclave seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &SimpleSigner{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKey returns the signer's ed25519 public key.
func (s *SimpleSigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// PublicKeyHex returns the hex encoding of the public key.
func (s *SimpleSigner) PublicKeyHex() string {
	return hex.EncodeToString(s.PublicKey())
}

// SignPayload signs a serialized mint payload. Only canonical-length
// payloads are accepted; the signer is not a general signing oracle.
func (s *SimpleSigner) SignPayload(data []byte) ([]byte, error) {
	if len(data) != payload.EncodedSize {
		return nil, errors.New("refusing to sign: not a canonical mint payload")
	}
	return ed25519.Sign(s.key, data), nil
}
