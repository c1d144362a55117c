package payload

import (
	"strings"

	"golang.org/x/crypto/blake2b"
)

// NameHash derives the 32-byte full-name hash carried in mint payloads.
// Names are case-folded and whitespace-normalized first so that cosmetic
// differences in the government record never change the hash.
func NameHash(fullName string) [32]byte {
	normalized := strings.ToUpper(strings.Join(strings.Fields(fullName), " "))
	return blake2b.Sum256([]byte(normalized))
}
