// Package consumption implements the durable consumption ledger and the guard
// built on top of it.
//
// The ledger is the backend's permanent memory of which government identities
// and which on-chain mint requests have produced (or been blocked from
// producing) an attestation. It holds three namespaces in one exclusively
// owned file: gov-id records keyed by a peppered hash, mint-request records
// keyed by lower-cased request id, and an append-only audit log. A wallet
// index for reverse lookups is derived from the records on load and kept
// consistent on every write; it is never persisted on its own.
//
// All mutating operations hold the store mutex across the whole
// read-modify-write-persist sequence. Persistence is a full-file rewrite via
// temp file and atomic rename. Records are never deleted in normal operation;
// removal is an explicit admin operation.
package consumption
