package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// MintRequestedFields are the decoded fields of a mint-request-created event.
type MintRequestedFields struct {
	RequestID interfaces.ObjectID
	Requester interfaces.WalletAddress
	FeeMist   uint64
}

// AttestationIssuedFields are the decoded fields of an attestation-minted
// event.
type AttestationIssuedFields struct {
	AttestationID interfaces.ObjectID
	Recipient     interfaces.WalletAddress
	RequestID     interfaces.ObjectID
}

// rawEventFields captures both the snake_case fields emitted by the Move
// module and the camelCase variants some indexer-backed RPC providers
// rewrite them to.
type rawEventFields struct {
	RequestID      string    `json:"request_id"`
	RequestIDAlt   string    `json:"requestId"`
	Requester      string    `json:"requester"`
	Recipient      string    `json:"recipient"`
	AttestationID  string    `json:"attestation_id"`
	AttestationAlt string    `json:"attestationId"`
	FeeMist        flexInt64 `json:"fee_mist"`
	FeeMistAlt     flexInt64 `json:"feeMist"`
}

func decodeRaw(ev interfaces.LedgerEvent) (*rawEventFields, error) {
	if len(ev.ParsedJSON) == 0 {
		return nil, fmt.Errorf("event %s has no parsed fields", ev.Type)
	}
	var raw rawEventFields
	if err := json.Unmarshal(ev.ParsedJSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode fields of event %s: %w", ev.Type, err)
	}
	return &raw, nil
}

func pick(primary, alt string) string {
	if primary != "" {
		return primary
	}
	return alt
}

// DecodeMintRequested extracts the mint-request fields from an event.
func DecodeMintRequested(ev interfaces.LedgerEvent) (*MintRequestedFields, error) {
	raw, err := decodeRaw(ev)
	if err != nil {
		return nil, err
	}
	out := &MintRequestedFields{
		RequestID: interfaces.ObjectID(pick(raw.RequestID, raw.RequestIDAlt)).Normalized(),
		Requester: interfaces.WalletAddress(raw.Requester).Normalized(),
		FeeMist:   uint64(max64(int64(raw.FeeMist), int64(raw.FeeMistAlt))),
	}
	if out.RequestID == "" || out.Requester == "" {
		return nil, fmt.Errorf("event %s is missing request id or requester", ev.Type)
	}
	return out, nil
}

// DecodeAttestationIssued extracts the attestation-minted fields from an
// event.
func DecodeAttestationIssued(ev interfaces.LedgerEvent) (*AttestationIssuedFields, error) {
	raw, err := decodeRaw(ev)
	if err != nil {
		return nil, err
	}
	out := &AttestationIssuedFields{
		AttestationID: interfaces.ObjectID(pick(raw.AttestationID, raw.AttestationAlt)).Normalized(),
		Recipient:     interfaces.WalletAddress(raw.Recipient).Normalized(),
		RequestID:     interfaces.ObjectID(pick(raw.RequestID, raw.RequestIDAlt)).Normalized(),
	}
	if out.AttestationID == "" || out.Recipient == "" {
		return nil, fmt.Errorf("event %s is missing attestation id or recipient", ev.Type)
	}
	return out, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
