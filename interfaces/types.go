package interfaces

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// WalletAddress is a 32-byte account address in 0x-prefixed hex form.
// Comparisons must go through Normalized; the chain reports addresses in
// mixed case depending on the RPC provider.
type WalletAddress string

// Normalized returns the canonical lower-cased form of the address.
func (a WalletAddress) Normalized() WalletAddress {
	return WalletAddress(strings.ToLower(strings.TrimSpace(string(a))))
}

// Equal compares two addresses case-insensitively.
func (a WalletAddress) Equal(other WalletAddress) bool {
	return a.Normalized() == other.Normalized()
}

// Bytes32 decodes the address into its fixed 32-byte form.
func (a WalletAddress) Bytes32() ([32]byte, error) {
	return hexTo32(string(a))
}

// ObjectID identifies an on-chain object (attestation, mint request, registry)
// in 0x-prefixed hex form.
type ObjectID string

// Normalized returns the canonical lower-cased form of the object id.
func (id ObjectID) Normalized() ObjectID {
	return ObjectID(strings.ToLower(strings.TrimSpace(string(id))))
}

// Bytes32 decodes the object id into its fixed 32-byte form.
func (id ObjectID) Bytes32() ([32]byte, error) {
	return hexTo32(string(id))
}

// TransactionDigest is the opaque digest of a ledger transaction.
type TransactionDigest string

func hexTo32(s string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid hex value %q: %w", s, err)
	}
	if len(raw) > 32 {
		return out, fmt.Errorf("value %q exceeds 32 bytes", s)
	}
	// Short values are left-padded, matching on-chain address semantics.
	copy(out[32-len(raw):], raw)
	return out, nil
}

// VerificationLevel encodes how thoroughly an identity was verified.
type VerificationLevel uint8

const (
	// LevelIDLookup means only the government record lookup succeeded.
	LevelIDLookup VerificationLevel = 1

	// LevelFaceMatch means the lookup succeeded and the selfie matched the
	// record portrait.
	LevelFaceMatch VerificationLevel = 2
)

// VerifierSource identifies the verification channel that produced a payload.
type VerifierSource uint8

const (
	// SourceGovernmentID is the government-ID verification channel.
	SourceGovernmentID VerifierSource = 1
)

// VerifierVersion is the version of the payload layout and verification
// policy. Bumped only together with the on-chain verifier.
const VerifierVersion uint8 = 1

// MintPayload is the data signed by the enclave and submitted with the mint
// transaction. Field set and widths are part of the external contract with the
// enclave and the on-chain verifier; see the payload package for the wire
// layout.
type MintPayload struct {
	RequestID       ObjectID
	Recipient       WalletAddress
	Jurisdiction    uint16
	Level           VerificationLevel
	Source          VerifierSource
	NameHash        [32]byte
	IsHuman         bool
	IsOver18        bool
	VerifierVersion uint8
	IssuedAtMs      int64
}

// AttestationStatus is the lifecycle state of an issued attestation.
type AttestationStatus string

const (
	AttestationActive  AttestationStatus = "ACTIVE"
	AttestationExpired AttestationStatus = "EXPIRED"
	AttestationRevoked AttestationStatus = "REVOKED"
)

// AttestationSummary is a read-only projection of an issued attestation,
// derived either from the consumption ledger or from the chain's owned-object
// query. It is never constructed before a mint succeeds.
type AttestationSummary struct {
	ObjectID     ObjectID          `json:"objectId"`
	Jurisdiction uint16            `json:"jurisdiction"`
	Level        VerificationLevel `json:"level"`
	IssuedAtMs   int64             `json:"issuedAtMs"`
	ExpiresAtMs  int64             `json:"expiresAtMs"`
	Status       AttestationStatus `json:"status"`
	Valid        bool              `json:"valid"`
}
