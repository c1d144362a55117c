package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// rawAttestationFields is the on-chain attestation object content.
type rawAttestationFields struct {
	Jurisdiction flexInt64 `json:"jurisdiction"`
	Level        flexInt64 `json:"level"`
	IssuedAtMs   flexInt64 `json:"issued_at_ms"`
	ExpiresAtMs  flexInt64 `json:"expires_at_ms"`
	Revoked      bool      `json:"revoked"`
}

// DecodeAttestation projects an on-chain attestation object into its
// read-only summary. The now argument decides EXPIRED status.
func DecodeAttestation(obj *interfaces.LedgerObject, now time.Time) (*interfaces.AttestationSummary, error) {
	if len(obj.Fields) == 0 {
		return nil, fmt.Errorf("attestation object %s has no content", obj.ObjectID)
	}
	var raw rawAttestationFields
	if err := json.Unmarshal(obj.Fields, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode attestation object %s: %w", obj.ObjectID, err)
	}

	summary := &interfaces.AttestationSummary{
		ObjectID:     obj.ObjectID,
		Jurisdiction: uint16(raw.Jurisdiction),
		Level:        interfaces.VerificationLevel(raw.Level),
		IssuedAtMs:   int64(raw.IssuedAtMs),
		ExpiresAtMs:  int64(raw.ExpiresAtMs),
	}
	switch {
	case raw.Revoked:
		summary.Status = interfaces.AttestationRevoked
	case summary.ExpiresAtMs > 0 && now.UnixMilli() >= summary.ExpiresAtMs:
		summary.Status = interfaces.AttestationExpired
	default:
		summary.Status = interfaces.AttestationActive
		summary.Valid = true
	}
	return summary, nil
}
