// Command attestation-server runs the identity attestation backend: the
// public verification and mint API, the consumption ledger, the mint-request
// resolver, and the chain event indexer. The payload signer runs either
// in-process (development) or behind the enclaved Unix socket daemon.
package main
