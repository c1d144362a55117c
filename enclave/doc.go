// Package enclave implements the payload-signer trust boundary.
//
// The signer holds an ed25519 key that never enters the backend process. In
// production it runs as a separate daemon (cmd/enclaved) reachable only over
// a host-local Unix domain socket; the backend talks to it through Client,
// which implements interfaces.Signer. Tests use LocalSigner, the in-process
// double over the same SimpleSigner core.
//
// The signer refuses payloads that do not match the canonical mint-payload
// length: it signs exactly one message format, nothing else.
package enclave
