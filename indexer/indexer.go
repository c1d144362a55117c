// Package indexer reconciles the consumption ledger against chain state. It
// watches attestation-issued events and writes any consumption mark the
// finalize path failed to persist, so a crash between transaction execution
// and the durable marks cannot reopen a consumed request or identity.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/ledger"
	"github.com/suirifyprotocol/suirify-sub000/metrics"
)

// Indexer subscribes to attestation-issued events and backfills consumption
// marks. It also acts as the pending-mint registry for the finalize path:
// pending entries carry the identity needed to backfill the gov-id namespace,
// which the event alone cannot provide.
type Indexer struct {
	ledgerClient interfaces.LedgerClient
	guard        interfaces.ConsumptionGuard
	eventType    string
	log          *slog.Logger

	mu      sync.Mutex
	pending map[interfaces.ObjectID]interfaces.PendingMint
	sub     interfaces.EventSubscription
}

// New creates an indexer over the attestation-issued event type.
func New(ledgerClient interfaces.LedgerClient, guard interfaces.ConsumptionGuard, eventType string, log *slog.Logger) *Indexer {
	return &Indexer{
		ledgerClient: ledgerClient,
		guard:        guard,
		eventType:    eventType,
		log:          log,
		pending:      make(map[interfaces.ObjectID]interfaces.PendingMint),
	}
}

// RecordPending registers a mint about to be submitted.
func (ix *Indexer) RecordPending(p interfaces.PendingMint) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.pending[p.RequestID.Normalized()] = p
}

// TakePending removes and returns the pending mint for a request id.
func (ix *Indexer) TakePending(requestID interfaces.ObjectID) (*interfaces.PendingMint, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	p, ok := ix.pending[requestID.Normalized()]
	if !ok {
		return nil, false
	}
	delete(ix.pending, requestID.Normalized())
	return &p, true
}

// Start begins event delivery. Events may replay; every mark below is
// idempotent.
func (ix *Indexer) Start(ctx context.Context) error {
	sub, err := ix.ledgerClient.SubscribeEvents(ctx, interfaces.EventFilter{EventType: ix.eventType}, ix.handleEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to attestation events: %w", err)
	}

	ix.mu.Lock()
	ix.sub = sub
	ix.mu.Unlock()

	ix.log.Info("Event indexer started", slog.String("eventType", ix.eventType))
	return nil
}

// Stop ends event delivery.
func (ix *Indexer) Stop() {
	ix.mu.Lock()
	sub := ix.sub
	ix.sub = nil
	ix.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (ix *Indexer) handleEvent(ev interfaces.LedgerEvent) {
	fields, err := ledger.DecodeAttestationIssued(ev)
	if err != nil {
		ix.log.Debug("Skipping undecodable attestation event", "err", err)
		return
	}
	log := ix.log.With(
		slog.String("requestId", string(fields.RequestID)),
		slog.String("attestationId", string(fields.AttestationID)))

	entry := interfaces.ConsumptionEntry{
		TimestampMs:   ev.TimestampMs,
		Wallet:        fields.Recipient,
		AttestationID: fields.AttestationID,
		RequestID:     fields.RequestID,
		EventType:     interfaces.ConsumptionReconciled,
		Source:        "indexer",
		Note:          "tx " + string(ev.TxDigest),
	}

	if fields.RequestID != "" && !ix.guard.IsMintRequestConsumed(fields.RequestID) {
		if _, err := ix.guard.MarkMintRequestConsumed(fields.RequestID, entry); err != nil {
			log.Error("Failed to reconcile mint request", "err", err)
		} else {
			metrics.IndexerReconciliations.WithLabelValues("mint-request").Inc()
			log.Info("Reconciled mint request from chain event")
		}
	}

	// The gov-id namespace can only be backfilled when the finalize path left
	// us the identity behind the request. Always drain the pending entry so
	// the map does not grow on replays.
	pending, ok := ix.TakePending(fields.RequestID)
	if !ok {
		return
	}
	if ix.guard.HasUsedGovID(pending.Country, pending.IDNumber).Used {
		return
	}
	if _, err := ix.guard.MarkUsedGovID(pending.Country, pending.IDNumber, entry); err != nil {
		log.Error("Failed to reconcile gov id", "err", err)
		return
	}
	metrics.IndexerReconciliations.WithLabelValues("gov-id").Inc()
	log.Info("Reconciled gov id from pending mint")
}

var _ interfaces.PendingMintRegistry = (*Indexer)(nil)
