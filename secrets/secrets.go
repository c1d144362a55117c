// Package secrets resolves the backend's key material: the gov-id pepper, the
// sponsor and enclave signing seeds, and the admin API key. Secrets come from
// the environment in development and from HashiCorp Vault in production; the
// rest of the codebase only sees the Source interface.
package secrets

import (
	"context"
	"encoding/hex"
	"fmt"
)

// Well-known secret names.
const (
	// GovIDPepper keys the consumption ledger's identity hashes.
	GovIDPepper = "gov-id-pepper"

	// SponsorSeed is the 32-byte ed25519 seed of the gas sponsor account.
	SponsorSeed = "sponsor-seed"

	// EnclaveSeed is the 32-byte ed25519 seed of the enclave signing key.
	EnclaveSeed = "enclave-seed"

	// AdminAPIKey gates the admin HTTP surface.
	AdminAPIKey = "admin-api-key"
)

// Source resolves named secrets. Implementations must treat missing secrets
// as errors; an empty secret is never valid.
type Source interface {
	Secret(ctx context.Context, name string) ([]byte, error)
}

// Seed32 resolves a secret that must be a hex-encoded 32-byte seed.
func Seed32(ctx context.Context, src Source, name string) ([]byte, error) {
	raw, err := src.Secret(ctx, name)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("secret %s is not valid hex: %w", name, err)
	}
	if len(seed) != 32 {
		return nil, fmt.Errorf("secret %s must decode to 32 bytes, got %d", name, len(seed))
	}
	return seed, nil
}
