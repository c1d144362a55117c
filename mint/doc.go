// Package mint drives attestation issuance. The orchestrator takes a
// completed verification session, with its bound recipient wallet, through
// request resolution, duplicate checks, enclave signing, and the sponsored
// mint transaction, then records the consumption facts that make the whole
// flow at-most-once.
package mint
