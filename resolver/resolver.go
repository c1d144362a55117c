// Package resolver locates the on-chain mint request a finalize attempt
// should consume.
//
// Client-supplied request ids are never trusted on their own: an id is only
// honored when the chain's event stream corroborates that the same wallet
// raised it. Without corroboration the resolver falls back to discovering the
// wallet's most recent unconsumed request, or reports that none exists.
package resolver

import (
	"context"
	"log/slog"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/ledger"
)

// DefaultScanLimit bounds how many mint-request events one resolution scans.
// Matches typical fullnode page limits.
const DefaultScanLimit = 50

const pageSize = 50

// ResolvedRequest is an unconsumed mint request attributable to a wallet.
type ResolvedRequest struct {
	RequestID       interfaces.ObjectID          `json:"requestId"`
	RequestTxDigest interfaces.TransactionDigest `json:"requestTxDigest"`
	EventSeq        uint64                       `json:"eventSeq"`
	TimestampMs     int64                        `json:"timestampMs"`
	Requester       interfaces.WalletAddress     `json:"requester"`
}

// Resolver scans mint-request events for a wallet's pending request.
type Resolver struct {
	ledgerClient interfaces.LedgerClient
	guard        interfaces.ConsumptionGuard
	eventType    string
	scanLimit    int
	log          *slog.Logger
}

// New creates a resolver over the given mint-request event type. A
// non-positive scanLimit falls back to DefaultScanLimit.
func New(ledgerClient interfaces.LedgerClient, guard interfaces.ConsumptionGuard, eventType string, scanLimit int, log *slog.Logger) *Resolver {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Resolver{
		ledgerClient: ledgerClient,
		guard:        guard,
		eventType:    eventType,
		scanLimit:    scanLimit,
		log:          log,
	}
}

// Resolve finds the mint request finalize should consume for wallet.
//
// Events are scanned newest first. A preferred request id or creating tx
// digest is returned immediately once an event from the same wallet
// corroborates it; otherwise the newest event from the wallet whose request
// id is not yet consumed wins. A nil result means no usable request exists -
// including after query failures, which are logged and degraded rather than
// propagated, because the caller has a defined recovery (tell the user to
// create a request).
func (r *Resolver) Resolve(ctx context.Context, wallet interfaces.WalletAddress, preferred interfaces.ObjectID, preferredTx interfaces.TransactionDigest) *ResolvedRequest {
	wallet = wallet.Normalized()
	preferred = preferred.Normalized()
	hasPreference := preferred != "" || preferredTx != ""

	var fallback *ResolvedRequest
	scanned := 0
	var cursor *interfaces.EventCursor

	for scanned < r.scanLimit {
		page, err := r.ledgerClient.QueryEvents(ctx, interfaces.EventFilter{EventType: r.eventType}, pageSize, cursor, true)
		if err != nil {
			r.log.Warn("Mint-request event query failed, treating as no request found",
				"err", err, slog.String("wallet", string(wallet)))
			return fallback
		}
		if len(page.Events) == 0 {
			break
		}

		for _, ev := range page.Events {
			if scanned >= r.scanLimit {
				break
			}
			scanned++

			fields, err := ledger.DecodeMintRequested(ev)
			if err != nil {
				r.log.Debug("Skipping undecodable mint-request event", "err", err)
				continue
			}
			if !fields.Requester.Equal(wallet) {
				continue
			}

			resolved := &ResolvedRequest{
				RequestID:       fields.RequestID,
				RequestTxDigest: ev.TxDigest,
				EventSeq:        ev.EventSeq,
				TimestampMs:     ev.TimestampMs,
				Requester:       fields.Requester,
			}

			// Exact-match fast path: the client-supplied id or tx digest is
			// corroborated by this wallet's own on-chain event.
			if preferred != "" && fields.RequestID == preferred {
				return resolved
			}
			if preferredTx != "" && ev.TxDigest == preferredTx {
				return resolved
			}

			if fallback == nil && !r.guard.IsMintRequestConsumed(fields.RequestID) {
				if !hasPreference {
					return resolved
				}
				// Keep scanning for the preferred request; remember the best
				// discovered one meanwhile.
				fallback = resolved
			}
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	return fallback
}
