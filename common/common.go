// Package common holds shared service metadata and logging setup used by all
// binaries in the attestation backend.
package common

// PackageName tags metrics and logs emitted by this service.
const PackageName = "suirify-attestation-backend"

// Version is set at build time via -ldflags.
var Version = "dev"
