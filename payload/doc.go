// Package payload implements the canonical binary encoding of attestation
// mint payloads.
//
// The encoding is the signing contract shared by the backend, the enclave
// signer, and the on-chain verifier: all three must produce and check
// signatures over the exact same bytes. Field order, widths, and byte order
// are therefore frozen; any change requires a coordinated verifier version
// bump.
package payload
