package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/ledger"
	"github.com/suirifyprotocol/suirify-sub000/metrics"
	"github.com/suirifyprotocol/suirify-sub000/payload"
	"github.com/suirifyprotocol/suirify-sub000/resolver"
	"github.com/suirifyprotocol/suirify-sub000/session"
)

// AttestationIndex is the local fast path for existing-attestation checks.
// Implemented by the consumption store; the chain stays authoritative.
type AttestationIndex interface {
	LatestAttestationFor(wallet interfaces.WalletAddress) (interfaces.ObjectID, bool)
}

// Result is a successful finalize outcome.
type Result struct {
	TxDigest      interfaces.TransactionDigest `json:"txDigest"`
	AttestationID interfaces.ObjectID          `json:"attestationId,omitempty"`
	RequestID     interfaces.ObjectID          `json:"requestId"`
}

// WalletStatus is the read-only view of a wallet's mint state.
type WalletStatus struct {
	HasRequest     bool                           `json:"hasRequest"`
	PendingRequest *resolver.ResolvedRequest      `json:"pendingRequest,omitempty"`
	Attestation    *interfaces.AttestationSummary `json:"attestation,omitempty"`
}

// Orchestrator drives the finalize flow: session lookup, request resolution,
// consumption checks, enclave signing, sponsored submission, and the durable
// marks afterwards. One instance serves all requests; per-session attempts
// are single-flight.
type Orchestrator struct {
	cfg          Config
	sessions     *session.Store
	guard        interfaces.ConsumptionGuard
	attestations AttestationIndex
	resolver     *resolver.Resolver
	signer       interfaces.Signer
	ledgerClient interfaces.LedgerClient
	pending      interfaces.PendingMintRegistry
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewOrchestrator wires the finalize flow. The pending registry may be nil
// when no indexer runs (tests, tooling).
func NewOrchestrator(
	cfg Config,
	sessions *session.Store,
	guard interfaces.ConsumptionGuard,
	attestations AttestationIndex,
	res *resolver.Resolver,
	signer interfaces.Signer,
	ledgerClient interfaces.LedgerClient,
	pending interfaces.PendingMintRegistry,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		sessions:     sessions,
		guard:        guard,
		attestations: attestations,
		resolver:     res,
		signer:       signer,
		ledgerClient: ledgerClient,
		pending:      pending,
		log:          log,
		now:          time.Now,
		inflight:     make(map[string]struct{}),
	}
}

// Finalize completes a verified session into an on-chain attestation.
//
// Nothing is marked consumed until the mint transaction has succeeded, so a
// transient failure anywhere in the flow leaves the request and identity
// fully retryable. The one exception is the duplicate branch: a wallet that
// already holds a valid attestation gets its request and identity marked so
// the same duplicate is not re-litigated on every retry.
//
// The recipient wallet is the one bound to the session during
// complete-verification; callers cannot redirect a mint to another wallet at
// finalize time.
func (o *Orchestrator) Finalize(ctx context.Context, sessionID string, preferredRequestID interfaces.ObjectID, preferredTx interfaces.TransactionDigest) (*Result, error) {
	if !o.acquire(sessionID) {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeInFlight).Inc()
		return nil, interfaces.ErrFinalizeInFlight
	}
	defer o.release(sessionID)

	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeSessionMissing).Inc()
		return nil, err
	}
	wallet := sess.Wallet.Normalized()
	if wallet == "" {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeWalletUnbound).Inc()
		return nil, interfaces.ErrWalletNotBound
	}
	log := o.log.With(slog.String("sessionId", sessionID), slog.String("wallet", string(wallet)))

	prepared, err := o.sessions.Prepared(sessionID)
	if err != nil {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeSessionMissing).Inc()
		return nil, err
	}

	resolved := o.resolver.Resolve(ctx, wallet, preferredRequestID, preferredTx)
	if resolved == nil {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeNoRequest).Inc()
		return nil, interfaces.ErrNoPendingMintRequest
	}
	log = log.With(slog.String("requestId", string(resolved.RequestID)))

	if o.guard.IsMintRequestConsumed(resolved.RequestID) {
		metrics.GuardRejections.WithLabelValues("mint-request").Inc()
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return nil, interfaces.ErrRequestAlreadyConsumed
	}
	if check := o.guard.HasUsedGovID(sess.Country, sess.IDNumber); check.Used {
		metrics.GuardRejections.WithLabelValues("gov-id").Inc()
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return nil, interfaces.ErrGovIDAlreadyUsed
	}

	if existing := o.existingAttestation(ctx, wallet); existing != nil {
		o.markConsumed(sess, wallet, resolved.RequestID, existing.ObjectID, interfaces.ConsumptionExistingAttestation, log)
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAttestationAlreadyHeld, existing.ObjectID)
	}

	mintPayload := interfaces.MintPayload{
		RequestID:       resolved.RequestID,
		Recipient:       wallet,
		Jurisdiction:    prepared.Jurisdiction,
		Level:           prepared.Level,
		Source:          prepared.Source,
		NameHash:        prepared.NameHash,
		IsHuman:         prepared.IsHuman,
		IsOver18:        prepared.IsOver18,
		VerifierVersion: prepared.VerifierVersion,
		IssuedAtMs:      o.now().UnixMilli(),
	}
	encoded, err := payload.Encode(mintPayload)
	if err != nil {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeUpstreamFailure).Inc()
		return nil, fmt.Errorf("failed to encode mint payload: %w", err)
	}

	signed, err := o.signer.Sign(ctx, encoded)
	if err != nil {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeUpstreamFailure).Inc()
		return nil, fmt.Errorf("enclave signing failed: %w", err)
	}

	if o.pending != nil {
		o.pending.RecordPending(interfaces.PendingMint{
			RequestID: resolved.RequestID,
			Wallet:    wallet,
			SessionID: sessionID,
			Country:   sess.Country,
			IDNumber:  sess.IDNumber,
		})
	}

	result, err := o.ledgerClient.SubmitSignedTransaction(ctx, interfaces.ProgramCall{
		PackageID: o.cfg.PackageID,
		Module:    o.cfg.MoveModule,
		Function:  o.cfg.MintFunction,
		Arguments: []any{
			string(o.cfg.RegistryID),
			string(resolved.RequestID),
			encoded,
			signed.Signature,
			signed.PublicKey,
		},
		GasBudget: o.cfg.GasBudget,
	})
	if err != nil {
		metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeUpstreamFailure).Inc()
		return nil, fmt.Errorf("mint transaction failed: %w", err)
	}

	attestationID := o.attestationFromResult(result)
	o.markConsumed(sess, wallet, resolved.RequestID, attestationID, interfaces.ConsumptionMintCompleted, log)
	o.sessions.Delete(sessionID)

	metrics.FinalizeAttempts.WithLabelValues(metrics.OutcomeMinted).Inc()
	log.Info("Attestation minted",
		slog.String("txDigest", string(result.Digest)),
		slog.String("attestationId", string(attestationID)))

	return &Result{
		TxDigest:      result.Digest,
		AttestationID: attestationID,
		RequestID:     resolved.RequestID,
	}, nil
}

// WalletStatus reports the wallet's pending mint request and any valid
// attestation it holds.
func (o *Orchestrator) WalletStatus(ctx context.Context, wallet interfaces.WalletAddress) *WalletStatus {
	wallet = wallet.Normalized()
	status := &WalletStatus{}
	if existing := o.existingAttestation(ctx, wallet); existing != nil {
		status.Attestation = existing
		return status
	}
	status.PendingRequest = o.resolver.Resolve(ctx, wallet, "", "")
	status.HasRequest = status.PendingRequest != nil
	return status
}

// existingAttestation returns a valid attestation held by wallet, or nil.
// Checks the local index first, then the chain's owned objects. Chain query
// failures degrade to "none found"; the on-chain registry still rejects a
// double mint if the degraded answer was wrong.
func (o *Orchestrator) existingAttestation(ctx context.Context, wallet interfaces.WalletAddress) *interfaces.AttestationSummary {
	now := o.now()

	if id, ok := o.attestations.LatestAttestationFor(wallet); ok {
		obj, err := o.ledgerClient.GetObject(ctx, id)
		switch {
		case errors.Is(err, interfaces.ErrObjectNotFound):
			// Recorded attestation no longer exists on chain, fall through to
			// the owned-object scan.
		case err != nil:
			o.log.Warn("Attestation lookup failed", "err", err, slog.String("objectId", string(id)))
		default:
			if summary, err := ledger.DecodeAttestation(obj, now); err == nil && summary.Valid {
				return summary
			}
		}
	}

	owned, err := o.ledgerClient.GetOwnedObjectsByType(ctx, wallet, o.cfg.AttestationObjectType)
	if err != nil {
		o.log.Warn("Owned-attestation query failed", "err", err, slog.String("wallet", string(wallet)))
		return nil
	}
	for i := range owned {
		summary, err := ledger.DecodeAttestation(&owned[i], now)
		if err != nil {
			o.log.Debug("Skipping undecodable attestation object", "err", err)
			continue
		}
		if summary.Valid {
			return summary
		}
	}
	return nil
}

// markConsumed writes both guard namespaces. Mark failures are logged, not
// returned: once the chain minted, the indexer reconciles any missing mark.
func (o *Orchestrator) markConsumed(sess *session.Session, wallet interfaces.WalletAddress, requestID, attestationID interfaces.ObjectID, eventType string, log *slog.Logger) {
	entry := interfaces.ConsumptionEntry{
		Wallet:        wallet,
		AttestationID: attestationID,
		RequestID:     requestID,
		EventType:     eventType,
		Source:        "finalize",
	}
	if _, err := o.guard.MarkMintRequestConsumed(requestID, entry); err != nil {
		log.Error("Failed to mark mint request consumed", "err", err)
	}
	if _, err := o.guard.MarkUsedGovID(sess.Country, sess.IDNumber, entry); err != nil {
		log.Error("Failed to mark gov id used", "err", err)
	}
}

func (o *Orchestrator) attestationFromResult(result *interfaces.TransactionResult) interfaces.ObjectID {
	for _, change := range result.ObjectChanges {
		if change.Kind == "created" && change.ObjectType == o.cfg.AttestationObjectType {
			return change.ObjectID.Normalized()
		}
	}
	for _, ev := range result.Events {
		if ev.Type != o.cfg.AttestationEventType {
			continue
		}
		if fields, err := ledger.DecodeAttestationIssued(ev); err == nil {
			return fields.AttestationID
		}
	}
	return ""
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[sessionID]; busy {
		return false
	}
	o.inflight[sessionID] = struct{}{}
	return true
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, sessionID)
}
