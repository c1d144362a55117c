// Package ledger implements the blockchain collaborator behind
// interfaces.LedgerClient.
//
// The production client speaks JSON-RPC 2.0 to a Sui fullnode. It is the
// single deserialization boundary for chain data: every tolerance for RPC
// shape variation (string-encoded integers, snake_case versus camelCase event
// fields, optional envelopes) lives here, and everything above it consumes
// the typed structures from the interfaces package.
//
// Transactions are sponsored: the backend builds the move call through the
// fullnode, signs the returned transaction bytes with its own ed25519 sponsor
// key, and executes, so the recipient never pays gas for finalization.
//
// Event subscriptions are cursor-driven polls rather than websocket pushes.
// Consumers of SubscribeEvents must be idempotent; delivery may lag and may
// replay.
package ledger
