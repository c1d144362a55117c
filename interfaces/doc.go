// Package interfaces defines the core interfaces and types for the attestation
// backend without including implementation details.
//
// The backend mints on-chain identity attestations after an off-chain KYC flow.
// This package holds the contracts between its components:
//
//   - LedgerClient: the blockchain collaborator (submit transactions, read
//     objects, query and follow events)
//   - Signer: the payload signer behind the enclave trust boundary
//   - IdentityDirectory: the external government-record lookup
//   - ConsumptionGuard: the sole authority on whether a mint may proceed
//
// It also defines the shared value types (wallet addresses, object ids, mint
// payloads, consumption records) and the sentinel errors that make up the
// service's error taxonomy. Components depend on these interfaces rather than
// on each other's concrete implementations.
package interfaces
