package mint

import (
	"encoding/hex"
	"fmt"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// Config carries the on-chain deployment parameters of the attestation
// program. Values come from flags or the environment; the public portion is
// served to clients so they can build their mint-request transactions.
type Config struct {
	// PackageID is the published attestation package.
	PackageID interfaces.ObjectID

	// RegistryID is the shared registry object the mint entry function
	// mutates.
	RegistryID interfaces.ObjectID

	// MoveModule and MintFunction name the finalize entry point inside the
	// package.
	MoveModule   string
	MintFunction string

	// MintFeeMist is the fee, in MIST, a wallet locks when creating a mint
	// request. Informational for clients; the chain enforces the real value.
	MintFeeMist uint64

	// MintRequestEventType and AttestationEventType are the fully qualified
	// Move event types scanned by the resolver and the indexer.
	MintRequestEventType string
	AttestationEventType string

	// AttestationObjectType is the fully qualified type of issued attestation
	// objects, used for owned-object duplicate checks.
	AttestationObjectType string

	// EnclavePublicKeyHex is the hex-encoded ed25519 key the on-chain
	// verifier accepts signatures from. Served to clients for transparency.
	EnclavePublicKeyHex string

	// GasBudget for the finalize transaction, in MIST. Zero uses the ledger
	// client's default.
	GasBudget uint64

	// ScanLimit bounds resolver event scans. Zero uses the resolver default.
	ScanLimit int
}

// Validate checks that every required deployment parameter is present.
func (c *Config) Validate() error {
	if c.PackageID == "" {
		return fmt.Errorf("package id is required")
	}
	if c.RegistryID == "" {
		return fmt.Errorf("registry id is required")
	}
	if c.MoveModule == "" || c.MintFunction == "" {
		return fmt.Errorf("move module and mint function are required")
	}
	if c.MintRequestEventType == "" || c.AttestationEventType == "" {
		return fmt.Errorf("mint request and attestation event types are required")
	}
	if c.AttestationObjectType == "" {
		return fmt.Errorf("attestation object type is required")
	}
	if c.EnclavePublicKeyHex != "" {
		if _, err := hex.DecodeString(c.EnclavePublicKeyHex); err != nil {
			return fmt.Errorf("enclave public key is not valid hex: %w", err)
		}
	}
	return nil
}

// PublicConfig is the client-facing projection of Config, served on the mint
// config endpoint.
type PublicConfig struct {
	PackageID            interfaces.ObjectID `json:"packageId"`
	RegistryID           interfaces.ObjectID `json:"registryId"`
	MintFeeMist          uint64              `json:"mintFeeMist"`
	MintRequestEventType string              `json:"mintRequestEventType"`
	AttestationEventType string              `json:"attestationEventType"`
	EnclavePublicKeyHex  string              `json:"enclavePublicKey,omitempty"`
	VerifierVersion      uint8               `json:"verifierVersion"`
}

// Public returns the client-facing projection of the config.
func (c *Config) Public() PublicConfig {
	return PublicConfig{
		PackageID:            c.PackageID,
		RegistryID:           c.RegistryID,
		MintFeeMist:          c.MintFeeMist,
		MintRequestEventType: c.MintRequestEventType,
		AttestationEventType: c.AttestationEventType,
		EnclavePublicKeyHex:  c.EnclavePublicKeyHex,
		VerifierVersion:      interfaces.VerifierVersion,
	}
}
