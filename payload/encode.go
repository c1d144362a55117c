package payload

import (
	"encoding/binary"
	"fmt"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// EncodedSize is the fixed byte length of every encoded mint payload.
//
// Layout, little-endian, in order:
//
//	[0:32)    request object id
//	[32:64)   recipient address
//	[64:66)   jurisdiction code (u16)
//	[66]      verification level (u8)
//	[67]      verifier source (u8)
//	[68:100)  full-name hash (32 bytes)
//	[100]     is_human (u8, 0 or 1)
//	[101]     is_over_18 (u8, 0 or 1)
//	[102]     verifier version (u8)
//	[103:111) issued_at unix milliseconds (u64)
const EncodedSize = 32 + 32 + 2 + 1 + 1 + 32 + 1 + 1 + 1 + 8

// Encode serializes a mint payload into its canonical fixed layout.
func Encode(p interfaces.MintPayload) ([]byte, error) {
	requestID, err := p.RequestID.Bytes32()
	if err != nil {
		return nil, fmt.Errorf("encode request id: %w", err)
	}
	recipient, err := p.Recipient.Bytes32()
	if err != nil {
		return nil, fmt.Errorf("encode recipient: %w", err)
	}
	if p.IssuedAtMs <= 0 {
		return nil, fmt.Errorf("issued-at timestamp must be positive, got %d", p.IssuedAtMs)
	}

	out := make([]byte, 0, EncodedSize)
	out = append(out, requestID[:]...)
	out = append(out, recipient[:]...)
	out = binary.LittleEndian.AppendUint16(out, p.Jurisdiction)
	out = append(out, byte(p.Level), byte(p.Source))
	out = append(out, p.NameHash[:]...)
	out = append(out, boolByte(p.IsHuman), boolByte(p.IsOver18), p.VerifierVersion)
	out = binary.LittleEndian.AppendUint64(out, uint64(p.IssuedAtMs))
	return out, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
