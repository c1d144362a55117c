package interfaces

import "errors"

// Error taxonomy. Duplicate errors are permanent for the given inputs and must
// not be retried; not-found errors require the caller to restart the flow;
// upstream errors are transient and retryable without consumption side
// effects.
var (
	// ErrGovIDAlreadyUsed means the government identity already produced an
	// attestation. Permanent.
	ErrGovIDAlreadyUsed = errors.New("government id already used for an attestation")

	// ErrRequestAlreadyConsumed means the mint request was already processed.
	// Permanent.
	ErrRequestAlreadyConsumed = errors.New("mint request already processed")

	// ErrAttestationAlreadyHeld means the wallet already owns a valid
	// attestation. Permanent.
	ErrAttestationAlreadyHeld = errors.New("wallet already holds a valid attestation")

	// ErrIdentityNotFound means no government record exists for the supplied
	// country and id number.
	ErrIdentityNotFound = errors.New("identity record not found")

	// ErrSessionNotFound means the verification session is missing, expired,
	// or not yet complete enough for the requested operation.
	ErrSessionNotFound = errors.New("verification session not found or incomplete")

	// ErrNoPendingMintRequest means no unconsumed mint request exists for the
	// wallet; the caller must create one on chain first.
	ErrNoPendingMintRequest = errors.New("no pending mint request - create one first")

	// ErrWalletNotBound means finalize was called before complete-verification
	// bound a recipient wallet to the session.
	ErrWalletNotBound = errors.New("no wallet bound to session - complete verification first")

	// ErrFinalizeInFlight means another finalize attempt for the same session
	// is still running.
	ErrFinalizeInFlight = errors.New("finalize already in progress for this session")

	// ErrObjectNotFound means the requested on-chain object does not exist.
	ErrObjectNotFound = errors.New("ledger object not found")

	// ErrUpstreamUnavailable wraps transient ledger, signer, or RPC failures.
	// Retryable.
	ErrUpstreamUnavailable = errors.New("upstream temporarily unavailable")
)
