package httpserver

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// adminKeyHeader carries the operator key for the admin surface.
const adminKeyHeader = "X-Admin-Key"

// RequireAdminKey gates admin endpoints on a constant-time key comparison.
// With no key configured the surface stays closed.
func (h *Handler) RequireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminKey == "" {
			h.writeError(w, http.StatusNotFound, "admin API disabled")
			return
		}
		provided := r.Header.Get(adminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.adminKey)) != 1 {
			h.log.Warn("Rejected admin request", slog.String("path", r.URL.Path))
			h.writeError(w, http.StatusUnauthorized, "invalid admin key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleAdminMintRequests lists consumed mint-request records, newest first.
func (h *Handler) HandleAdminMintRequests(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"mintRequests": h.store.MintRequestRecords(),
	})
}

// AdminConsumeRequest force-marks a mint request as consumed.
type AdminConsumeRequest struct {
	RequestID interfaces.ObjectID      `json:"requestId"`
	Wallet    interfaces.WalletAddress `json:"wallet,omitempty"`
	Note      string                   `json:"note,omitempty"`
}

// HandleAdminConsumeRequest marks a request consumed on operator authority,
// e.g. after an incident where chain state and ledger state diverged.
func (h *Handler) HandleAdminConsumeRequest(w http.ResponseWriter, r *http.Request) {
	var req AdminConsumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		h.writeError(w, http.StatusBadRequest, "requestId is required")
		return
	}

	rec, err := h.guard.MarkMintRequestConsumed(req.RequestID, interfaces.ConsumptionEntry{
		Wallet:    req.Wallet,
		RequestID: req.RequestID,
		EventType: interfaces.ConsumptionAdminOverride,
		Source:    "admin",
		Note:      req.Note,
	})
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	h.log.Info("Admin consumed mint request", slog.String("requestId", string(req.RequestID)))
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleAdminRemoveGovID deletes a gov-id record, re-enabling the identity.
// Escape hatch for support cases; the removal is itself audit-logged.
func (h *Handler) HandleAdminRemoveGovID(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	idNumber := chi.URLParam(r, "idNumber")
	if country == "" || idNumber == "" {
		h.writeError(w, http.StatusBadRequest, "country and idNumber are required")
		return
	}

	removed, err := h.store.RemoveGovID(country, idNumber)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	if !removed {
		h.writeError(w, http.StatusNotFound, "no record for identity")
		return
	}

	h.log.Info("Admin removed gov-id record", slog.String("country", country))
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
