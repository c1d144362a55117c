package interfaces

// Consumption event types recorded in gov-id and mint-request histories.
const (
	// ConsumptionMintCompleted records a successful mint.
	ConsumptionMintCompleted = "mint-completed"

	// ConsumptionExistingAttestation records that a duplicate was detected
	// because the wallet already held a valid attestation. The mark is
	// deliberate: it stops the same request from being retried forever.
	ConsumptionExistingAttestation = "existing-attestation"

	// ConsumptionReconciled records a mark made by the event indexer while
	// catching up with chain state.
	ConsumptionReconciled = "indexer-reconciled"

	// ConsumptionAdminOverride records an operator-forced mark.
	ConsumptionAdminOverride = "admin-override"
)

// ConsumptionEntry is one append-only history item on a gov-id or
// mint-request record. Each entry is a fact to remember, not a state
// transition: repeated marks for the same key accumulate rather than error.
type ConsumptionEntry struct {
	TimestampMs   int64         `json:"timestampMs"`
	Wallet        WalletAddress `json:"wallet,omitempty"`
	AttestationID ObjectID      `json:"attestationId,omitempty"`
	RequestID     ObjectID      `json:"requestId,omitempty"`
	EventType     string        `json:"eventType"`
	Source        string        `json:"source"`
	Note          string        `json:"note,omitempty"`
}

// GovIDRecord is the durable record for a government identity that has
// produced (or been blocked from producing) an attestation. Keyed by a
// peppered hash; the raw id number is never stored.
type GovIDRecord struct {
	Country     string             `json:"country"`
	IDHash      string             `json:"idHash"`
	FirstSeenMs int64              `json:"firstSeenMs"`
	UpdatedMs   int64              `json:"updatedMs"`
	History     []ConsumptionEntry `json:"history"`
	Wallets     []string           `json:"wallets"`
	Latest      *ConsumptionEntry  `json:"latest"`
}

// MintRequestRecord is the durable record for a consumed on-chain mint
// request, keyed by the lower-cased request id.
type MintRequestRecord struct {
	RequestID   ObjectID           `json:"requestId"`
	FirstSeenMs int64              `json:"firstSeenMs"`
	UpdatedMs   int64              `json:"updatedMs"`
	History     []ConsumptionEntry `json:"history"`
	Wallets     []string           `json:"wallets"`
	Latest      *ConsumptionEntry  `json:"latest"`
}

// GovIDCheck is the result of a gov-id usage lookup.
type GovIDCheck struct {
	// Used reports whether the identity has ever produced an attestation.
	Used bool

	// NormalizedFallback is set when the country label was not recognized
	// and the lookup proceeded under a best-effort key. Callers must not
	// treat a fallback non-match as confident.
	NormalizedFallback bool
}

// PendingMint ties an in-flight mint submission to the identity that produced
// it. Recorded just before the transaction is submitted so that the event
// indexer can backfill the gov-id namespace if the process dies between
// submission and the durable consumption marks.
type PendingMint struct {
	RequestID ObjectID
	Wallet    WalletAddress
	SessionID string
	Country   string
	IDNumber  string
}

// PendingMintRegistry hands pending mints from the finalize path to the event
// indexer.
type PendingMintRegistry interface {
	// RecordPending registers a mint about to be submitted.
	RecordPending(p PendingMint)

	// TakePending removes and returns the pending mint for a request id.
	TakePending(requestID ObjectID) (*PendingMint, bool)
}

// ConsumptionGuard is the sole authority on whether a mint may proceed. It
// enforces two independent guarantees: at most one attestation per government
// identity, and at most one per on-chain mint request. Both must agree "not
// yet consumed" before a mint is finalized.
type ConsumptionGuard interface {
	// HasUsedGovID reports whether the identity already produced an
	// attestation. No side effects; safe at session-creation time.
	HasUsedGovID(country, idNumber string) GovIDCheck

	// MarkUsedGovID appends a history entry for the identity and persists
	// synchronously before returning.
	MarkUsedGovID(country, idNumber string, entry ConsumptionEntry) (*GovIDRecord, error)

	// IsMintRequestConsumed reports whether the request id was ever consumed.
	IsMintRequestConsumed(requestID ObjectID) bool

	// MarkMintRequestConsumed appends a history entry for the request id and
	// persists synchronously before returning.
	MarkMintRequestConsumed(requestID ObjectID, entry ConsumptionEntry) (*MintRequestRecord, error)
}
