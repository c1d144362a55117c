package consumption

import (
	"log/slog"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// Guard is the sole authority on whether a mint may proceed. It enforces two
// independent guarantees over the same store: at most one attestation per
// government identity, and at most one per on-chain mint request. Keeping the
// namespaces separate is deliberate defense in depth - a stale mint request
// must stay blocked even when the gov-id guard alone would already reject a
// new session.
type Guard struct {
	store *Store
	log   *slog.Logger
}

// NewGuard wraps the consumption store.
func NewGuard(store *Store, log *slog.Logger) *Guard {
	return &Guard{store: store, log: log}
}

// HasUsedGovID reports whether the identity already produced an attestation.
// No side effects. Malformed or unknown country labels do not fail the
// lookup; they proceed under a best-effort key and the result carries the
// fallback flag, since a fallback non-match is not a confident non-match.
func (g *Guard) HasUsedGovID(country, idNumber string) interfaces.GovIDCheck {
	used, fallback := g.store.HasGovID(country, idNumber)
	if fallback {
		g.log.Warn("Gov-id check used normalization fallback", slog.String("country", country))
	}
	return interfaces.GovIDCheck{Used: used, NormalizedFallback: fallback}
}

// MarkUsedGovID records a consumption fact for the identity and persists
// synchronously.
func (g *Guard) MarkUsedGovID(country, idNumber string, entry interfaces.ConsumptionEntry) (*interfaces.GovIDRecord, error) {
	rec, err := g.store.AppendGovID(country, idNumber, entry)
	if err != nil {
		return nil, err
	}
	g.log.Info("Marked gov-id used",
		slog.String("idHash", rec.IDHash),
		slog.String("eventType", entry.EventType),
		slog.String("source", entry.Source))
	return rec, nil
}

// IsMintRequestConsumed reports whether the request id was ever consumed.
func (g *Guard) IsMintRequestConsumed(requestID interfaces.ObjectID) bool {
	return g.store.HasMintRequest(requestID)
}

// MarkMintRequestConsumed records a consumption fact for the request id and
// persists synchronously.
func (g *Guard) MarkMintRequestConsumed(requestID interfaces.ObjectID, entry interfaces.ConsumptionEntry) (*interfaces.MintRequestRecord, error) {
	rec, err := g.store.AppendMintRequest(requestID, entry)
	if err != nil {
		return nil, err
	}
	g.log.Info("Marked mint request consumed",
		slog.String("requestId", string(rec.RequestID)),
		slog.String("eventType", entry.EventType),
		slog.String("source", entry.Source))
	return rec, nil
}

var _ interfaces.ConsumptionGuard = (*Guard)(nil)
