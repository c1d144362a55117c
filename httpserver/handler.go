package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suirifyprotocol/suirify-sub000/consumption"
	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/jurisdiction"
	"github.com/suirifyprotocol/suirify-sub000/metrics"
	"github.com/suirifyprotocol/suirify-sub000/mint"
	"github.com/suirifyprotocol/suirify-sub000/payload"
	"github.com/suirifyprotocol/suirify-sub000/session"
)

// maxBodySize bounds API request bodies.
const maxBodySize = 1 << 20

// Handler implements the API endpoints.
type Handler struct {
	log          *slog.Logger
	directory    interfaces.IdentityDirectory
	sessions     *session.Store
	guard        interfaces.ConsumptionGuard
	orchestrator *mint.Orchestrator
	mintCfg      mint.Config
	store        *consumption.Store
	adminKey     string
	now          func() time.Time
}

// NewHandler wires the API endpoints. An empty adminKey disables the admin
// surface entirely.
func NewHandler(
	log *slog.Logger,
	directory interfaces.IdentityDirectory,
	sessions *session.Store,
	guard interfaces.ConsumptionGuard,
	orchestrator *mint.Orchestrator,
	mintCfg mint.Config,
	store *consumption.Store,
	adminKey string,
) *Handler {
	return &Handler{
		log:          log,
		directory:    directory,
		sessions:     sessions,
		guard:        guard,
		orchestrator: orchestrator,
		mintCfg:      mintCfg,
		store:        store,
		adminKey:     adminKey,
		now:          time.Now,
	}
}

// StartVerificationRequest begins a verification session.
type StartVerificationRequest struct {
	Country  string `json:"country"`
	IDNumber string `json:"idNumber"`
	PolicyID string `json:"policyId,omitempty"`
}

// StartVerificationResponse reports the created session.
type StartVerificationResponse struct {
	SessionID    string `json:"sessionId"`
	Country      string `json:"country"`
	Jurisdiction uint16 `json:"jurisdiction"`
	Level        uint8  `json:"level"`
	IsOver18     bool   `json:"isOver18"`
}

// HandleVerificationStart looks up the government record and opens a session.
// The gov-id guard is consulted here so an already-used identity fails fast,
// before the user walks through the rest of the flow.
func (h *Handler) HandleVerificationStart(w http.ResponseWriter, r *http.Request) {
	var req StartVerificationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Country == "" || req.IDNumber == "" {
		h.writeError(w, http.StatusBadRequest, "country and idNumber are required")
		return
	}

	record, err := h.directory.Lookup(r.Context(), req.Country, req.IDNumber)
	if err != nil {
		metrics.VerificationSessions.WithLabelValues("lookup_failed").Inc()
		h.writeMappedError(w, err)
		return
	}

	if check := h.guard.HasUsedGovID(req.Country, req.IDNumber); check.Used {
		metrics.VerificationSessions.WithLabelValues("gov_id_used").Inc()
		h.writeMappedError(w, interfaces.ErrGovIDAlreadyUsed)
		return
	}

	info, _ := jurisdiction.Resolve(record.Country)
	prepared := &session.PreparedData{
		Jurisdiction:    info.Numeric,
		Level:           interfaces.LevelIDLookup,
		Source:          interfaces.SourceGovernmentID,
		VerifierVersion: interfaces.VerifierVersion,
		NameHash:        payload.NameHash(record.FullName),
		IsHuman:         true,
		IsOver18:        record.Over18(h.now()),
	}
	sess := h.sessions.Create(record, prepared, req.PolicyID)

	metrics.VerificationSessions.WithLabelValues("started").Inc()
	h.log.Info("Verification session started",
		slog.String("sessionId", sess.ID),
		slog.String("country", info.Alpha3))

	h.writeJSON(w, http.StatusOK, StartVerificationResponse{
		SessionID:    sess.ID,
		Country:      info.Alpha3,
		Jurisdiction: info.Numeric,
		Level:        uint8(prepared.Level),
		IsOver18:     prepared.IsOver18,
	})
}

// CompleteVerificationRequest binds the recipient wallet to a session and
// optionally reports the face-match outcome.
type CompleteVerificationRequest struct {
	SessionID     string                   `json:"sessionId"`
	WalletAddress interfaces.WalletAddress `json:"walletAddress"`
	FaceMatch     *session.FaceMatchResult `json:"faceMatch,omitempty"`
}

// ConsentData is exactly what the backend will attest on chain for this
// session. Clients display it to the user before finalize.
type ConsentData struct {
	SessionID       string                   `json:"sessionId"`
	WalletAddress   interfaces.WalletAddress `json:"walletAddress"`
	Country         string                   `json:"country"`
	Jurisdiction    uint16                   `json:"jurisdiction"`
	Level           uint8                    `json:"level"`
	IsHuman         bool                     `json:"isHuman"`
	IsOver18        bool                     `json:"isOver18"`
	VerifierVersion uint8                    `json:"verifierVersion"`
}

// CompleteVerificationResponse carries the consent data for the session.
type CompleteVerificationResponse struct {
	ConsentData ConsentData `json:"consentData"`
}

// HandleVerificationComplete binds the wallet, records any face-match
// result, and returns the consent data the mint will carry. Finalize uses
// the wallet bound here; it cannot be swapped later.
func (h *Handler) HandleVerificationComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteVerificationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.WalletAddress == "" {
		h.writeError(w, http.StatusBadRequest, "sessionId and walletAddress are required")
		return
	}

	if err := h.sessions.BindWallet(req.SessionID, req.WalletAddress); err != nil {
		h.writeMappedError(w, err)
		return
	}
	if req.FaceMatch != nil {
		if err := h.sessions.SetFaceMatch(req.SessionID, *req.FaceMatch); err != nil {
			h.writeMappedError(w, err)
			return
		}
	}
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	info, _ := jurisdiction.Resolve(sess.Country)
	consent := ConsentData{
		SessionID:     sess.ID,
		WalletAddress: sess.Wallet,
		Country:       info.Alpha3,
	}
	if sess.Prepared != nil {
		consent.Jurisdiction = sess.Prepared.Jurisdiction
		consent.Level = uint8(sess.Prepared.Level)
		consent.IsHuman = sess.Prepared.IsHuman
		consent.IsOver18 = sess.Prepared.IsOver18
		consent.VerifierVersion = sess.Prepared.VerifierVersion
	}
	h.writeJSON(w, http.StatusOK, CompleteVerificationResponse{ConsentData: consent})
}

// HandleMintConfig serves the public on-chain deployment parameters.
func (h *Handler) HandleMintConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.mintCfg.Public())
}

// HandleMintRequestStatus reports a wallet's pending request and attestation.
func (h *Handler) HandleMintRequestStatus(w http.ResponseWriter, r *http.Request) {
	wallet := interfaces.WalletAddress(chi.URLParam(r, "wallet"))
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, "wallet is required")
		return
	}
	h.writeJSON(w, http.StatusOK, h.orchestrator.WalletStatus(r.Context(), wallet))
}

// FinalizeRequest asks the backend to mint for a verified session. The
// request id and tx digest are optional hints; the resolver only honors
// them when the chain corroborates them. The recipient is the wallet bound
// at complete-verification.
type FinalizeRequest struct {
	SessionID       string                       `json:"sessionId"`
	RequestID       interfaces.ObjectID          `json:"requestId,omitempty"`
	RequestTxDigest interfaces.TransactionDigest `json:"requestTxDigest,omitempty"`
}

// HandleMintFinalize runs the finalize flow.
func (h *Handler) HandleMintFinalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	result, err := h.orchestrator.Finalize(r.Context(), req.SessionID, req.RequestID, req.RequestTxDigest)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, into); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.log.Error("Failed to write response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeMappedError translates the error taxonomy to HTTP statuses: duplicates
// conflict, missing state is not found, transient upstream trouble asks the
// client to retry.
func (h *Handler) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrGovIDAlreadyUsed),
		errors.Is(err, interfaces.ErrRequestAlreadyConsumed),
		errors.Is(err, interfaces.ErrAttestationAlreadyHeld),
		errors.Is(err, interfaces.ErrFinalizeInFlight):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, interfaces.ErrIdentityNotFound),
		errors.Is(err, interfaces.ErrSessionNotFound),
		errors.Is(err, interfaces.ErrNoPendingMintRequest):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, interfaces.ErrWalletNotBound):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interfaces.ErrUpstreamUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("Request failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
