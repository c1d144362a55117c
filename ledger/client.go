package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/crypto/blake2b"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/metrics"
)

const (
	// ed25519Flag is the signature scheme flag prepended to Sui signatures
	// and address preimages.
	ed25519Flag byte = 0x00

	// defaultGasBudget caps gas for sponsored mint transactions when the
	// caller does not set one.
	defaultGasBudget uint64 = 50_000_000
)

// intentMessage prefix for transaction data (scope, version, app id).
var txIntent = []byte{0, 0, 0}

// Client talks JSON-RPC 2.0 to a Sui fullnode and implements
// interfaces.LedgerClient. Transactions are signed by the sponsor key; read
// calls need no key material.
type Client struct {
	rpc        *rpc.Client
	sponsorKey ed25519.PrivateKey
	sponsor    interfaces.WalletAddress
	log        *slog.Logger
}

// Dial connects to the fullnode at url. sponsorSeed is the 32-byte ed25519
// seed of the gas sponsor account; it may be nil for read-only clients, in
// which case SubmitSignedTransaction fails.
func Dial(ctx context.Context, url string, sponsorSeed []byte, log *slog.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial fullnode %s: %v", interfaces.ErrUpstreamUnavailable, url, err)
	}

	c := &Client{rpc: rpcClient, log: log}
	if sponsorSeed != nil {
		if len(sponsorSeed) != ed25519.SeedSize {
			return nil, fmt.Errorf("sponsor seed must be %d bytes, got %d", ed25519.SeedSize, len(sponsorSeed))
		}
		c.sponsorKey = ed25519.NewKeyFromSeed(sponsorSeed)
		c.sponsor = AddressForPublicKey(c.sponsorKey.Public().(ed25519.PublicKey))
		log.Info("Ledger client ready", slog.String("sponsor", string(c.sponsor)))
	}
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// call runs one JSON-RPC request and records its latency per method.
func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	start := time.Now()
	err := c.rpc.CallContext(ctx, result, method, args...)
	metrics.LedgerCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return err
}

// SponsorAddress returns the gas sponsor account address, empty for
// read-only clients.
func (c *Client) SponsorAddress() interfaces.WalletAddress {
	return c.sponsor
}

// AddressForPublicKey derives the account address for an ed25519 public key:
// blake2b-256 over the scheme flag and the key bytes.
func AddressForPublicKey(pub ed25519.PublicKey) interfaces.WalletAddress {
	preimage := append([]byte{ed25519Flag}, pub...)
	sum := blake2b.Sum256(preimage)
	return interfaces.WalletAddress("0x" + hex.EncodeToString(sum[:]))
}

// SubmitSignedTransaction builds the move call through the fullnode, signs
// the transaction bytes with the sponsor key, and executes, waiting for
// effects. A transaction that executes but fails on chain is returned as an
// error, not a result.
func (c *Client) SubmitSignedTransaction(ctx context.Context, call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
	if c.sponsorKey == nil {
		return nil, fmt.Errorf("ledger client has no sponsor key configured")
	}

	gasBudget := call.GasBudget
	if gasBudget == 0 {
		gasBudget = defaultGasBudget
	}

	args := make([]any, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = encodeCallArg(arg)
	}

	var built wireTxBytes
	err := c.call(ctx, &built, "unsafe_moveCall",
		string(c.sponsor),
		string(call.PackageID),
		call.Module,
		call.Function,
		[]string{}, // no type arguments in the mint entry points
		args,
		nil, // let the node pick a gas coin
		fmt.Sprintf("%d", gasBudget),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: move call build failed: %v", interfaces.ErrUpstreamUnavailable, err)
	}

	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("fullnode returned invalid transaction bytes: %w", err)
	}
	signature := c.signTransaction(txBytes)

	var executed wireTxResponse
	err = c.call(ctx, &executed, "sui_executeTransactionBlock",
		built.TxBytes,
		[]string{signature},
		map[string]bool{"showEffects": true, "showEvents": true, "showObjectChanges": true},
		"WaitForLocalExecution",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction execution failed: %v", interfaces.ErrUpstreamUnavailable, err)
	}
	if executed.Effects != nil && executed.Effects.Status.Status != "success" {
		return nil, fmt.Errorf("transaction %s failed on chain: %s", executed.Digest, executed.Effects.Status.Error)
	}

	result := &interfaces.TransactionResult{
		Digest: interfaces.TransactionDigest(executed.Digest),
	}
	for i := range executed.Events {
		result.Events = append(result.Events, executed.Events[i].toLedgerEvent())
	}
	for _, change := range executed.ObjectChanges {
		oc := interfaces.ObjectChange{
			Kind:       change.Type,
			ObjectType: change.ObjectType,
			ObjectID:   interfaces.ObjectID(change.ObjectID).Normalized(),
		}
		if change.Owner != nil {
			oc.Owner = interfaces.WalletAddress(change.Owner.AddressOwner).Normalized()
		}
		result.ObjectChanges = append(result.ObjectChanges, oc)
	}

	c.log.Info("Submitted transaction",
		slog.String("digest", executed.Digest),
		slog.String("function", call.Module+"::"+call.Function))
	return result, nil
}

// signTransaction produces the serialized sponsor signature over tx bytes:
// ed25519 over blake2b-256 of the intent-prefixed bytes, wrapped with the
// scheme flag and public key, base64 encoded.
func (c *Client) signTransaction(txBytes []byte) string {
	message := append(append([]byte{}, txIntent...), txBytes...)
	digest := blake2b.Sum256(message)
	sig := ed25519.Sign(c.sponsorKey, digest[:])

	pub := c.sponsorKey.Public().(ed25519.PublicKey)
	serialized := make([]byte, 0, 1+len(sig)+len(pub))
	serialized = append(serialized, ed25519Flag)
	serialized = append(serialized, sig...)
	serialized = append(serialized, pub...)
	return base64.StdEncoding.EncodeToString(serialized)
}

// encodeCallArg converts Go values into the JSON forms unsafe_moveCall
// expects.
func encodeCallArg(arg any) any {
	switch v := arg.(type) {
	case []byte:
		// vector<u8> arguments travel as arrays of numbers.
		nums := make([]uint16, len(v))
		for i, b := range v {
			nums[i] = uint16(b)
		}
		return nums
	case interfaces.ObjectID:
		return string(v)
	case interfaces.WalletAddress:
		return string(v)
	case uint64:
		// u64 travels as a decimal string to avoid JSON number precision loss.
		return fmt.Sprintf("%d", v)
	default:
		return arg
	}
}

// GetOwnedObjectsByType lists objects of the given struct type owned by owner.
func (c *Client) GetOwnedObjectsByType(ctx context.Context, owner interfaces.WalletAddress, objectType string) ([]interfaces.LedgerObject, error) {
	var page wireOwnedObjectsPage
	err := c.call(ctx, &page, "suix_getOwnedObjects",
		string(owner.Normalized()),
		map[string]any{
			"filter":  map[string]any{"StructType": objectType},
			"options": map[string]bool{"showType": true, "showContent": true},
		},
		nil,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: owned objects query failed: %v", interfaces.ErrUpstreamUnavailable, err)
	}

	out := make([]interfaces.LedgerObject, 0, len(page.Data))
	for _, item := range page.Data {
		if item.Data == nil {
			continue
		}
		out = append(out, *item.Data.toLedgerObject())
	}
	return out, nil
}

// GetObject fetches one object by id.
func (c *Client) GetObject(ctx context.Context, id interfaces.ObjectID) (*interfaces.LedgerObject, error) {
	var resp wireObjectResponse
	err := c.call(ctx, &resp, "sui_getObject",
		string(id.Normalized()),
		map[string]bool{"showType": true, "showContent": true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: object fetch failed: %v", interfaces.ErrUpstreamUnavailable, err)
	}
	if resp.Error != nil || resp.Data == nil {
		return nil, interfaces.ErrObjectNotFound
	}
	return resp.Data.toLedgerObject(), nil
}

// QueryEvents returns one page of events matching the filter.
func (c *Client) QueryEvents(ctx context.Context, filter interfaces.EventFilter, limit int, cursor *interfaces.EventCursor, descending bool) (*interfaces.EventPage, error) {
	var wireCursor any
	if cursor != nil {
		wireCursor = wireEventCursor{TxDigest: string(cursor.TxDigest), EventSeq: cursor.EventSeq}
	}

	var page wireEventPage
	err := c.call(ctx, &page, "suix_queryEvents",
		map[string]any{"MoveEventType": filter.EventType},
		wireCursor,
		limit,
		descending,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: event query failed: %v", interfaces.ErrUpstreamUnavailable, err)
	}

	out := &interfaces.EventPage{HasNextPage: page.HasNextPage}
	for i := range page.Data {
		out.Events = append(out.Events, page.Data[i].toLedgerEvent())
	}
	if page.NextCursor != nil {
		out.NextCursor = &interfaces.EventCursor{
			TxDigest: interfaces.TransactionDigest(page.NextCursor.TxDigest),
			EventSeq: page.NextCursor.EventSeq,
		}
	}
	return out, nil
}

var _ interfaces.LedgerClient = (*Client)(nil)
