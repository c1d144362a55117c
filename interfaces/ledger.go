package interfaces

import (
	"context"
	"encoding/json"
)

// ProgramCall describes an invocation of an on-chain entry function. Arguments
// are marshaled by the ledger adapter; callers pass plain Go values (byte
// slices become vector<u8>).
type ProgramCall struct {
	PackageID ObjectID
	Module    string
	Function  string
	Arguments []any
	GasBudget uint64
}

// ObjectChange reports an object created or mutated by a transaction.
type ObjectChange struct {
	Kind       string // "created", "mutated", ...
	ObjectType string
	ObjectID   ObjectID
	Owner      WalletAddress
}

// TransactionResult is the outcome of a successfully executed transaction.
type TransactionResult struct {
	Digest        TransactionDigest
	Events        []LedgerEvent
	ObjectChanges []ObjectChange
}

// LedgerEvent is a single event emitted on chain. ParsedJSON carries the
// event-specific fields; typed decoding lives in the ledger adapter so that
// tolerance for RPC shape variation stays in one place.
type LedgerEvent struct {
	Type        string
	TxDigest    TransactionDigest
	EventSeq    uint64
	TimestampMs int64
	Sender      WalletAddress
	ParsedJSON  json.RawMessage
}

// EventFilter selects events by their fully qualified Move event type.
type EventFilter struct {
	EventType string
}

// EventCursor is an opaque position in the event stream.
type EventCursor struct {
	TxDigest TransactionDigest `json:"txDigest"`
	EventSeq string            `json:"eventSeq"`
}

// EventPage is one page of an event query.
type EventPage struct {
	Events      []LedgerEvent
	NextCursor  *EventCursor
	HasNextPage bool
}

// LedgerObject is an on-chain object with its type and raw field content.
type LedgerObject struct {
	ObjectID ObjectID
	Type     string
	Version  uint64
	Fields   json.RawMessage
}

// EventSubscription is a handle on a running event subscription.
type EventSubscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()

	// Err yields the terminal error, if any, once delivery stops.
	Err() <-chan error
}

// LedgerClient is the blockchain collaborator consumed by the backend. It is
// the only component that talks to the chain RPC; everything above it deals in
// the typed structures defined here.
type LedgerClient interface {
	// SubmitSignedTransaction builds, signs with the backend's sponsor key,
	// and executes a transaction for the given call, waiting for effects.
	SubmitSignedTransaction(ctx context.Context, call ProgramCall) (*TransactionResult, error)

	// GetOwnedObjectsByType lists objects of the given type owned by owner.
	GetOwnedObjectsByType(ctx context.Context, owner WalletAddress, objectType string) ([]LedgerObject, error)

	// GetObject fetches a single object by id. Returns ErrObjectNotFound if
	// the object does not exist or was deleted.
	GetObject(ctx context.Context, id ObjectID) (*LedgerObject, error)

	// QueryEvents returns events matching the filter, newest first when
	// descending is set, starting after the cursor when one is given.
	QueryEvents(ctx context.Context, filter EventFilter, limit int, cursor *EventCursor, descending bool) (*EventPage, error)

	// SubscribeEvents delivers matching events to onEvent until the context
	// is canceled or Unsubscribe is called. Delivery may lag the chain and
	// may replay events already seen; consumers must be idempotent.
	SubscribeEvents(ctx context.Context, filter EventFilter, onEvent func(LedgerEvent)) (EventSubscription, error)
}
