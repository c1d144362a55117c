package enclave

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxSignBodySize bounds sign request bodies; canonical payloads are around
// a hundred bytes, hex doubles that, JSON wraps it.
const maxSignBodySize = 4096

// SignRequest is the wire request to the enclave's sign endpoint.
type SignRequest struct {
	PayloadHex string `json:"payloadHex"`
}

// SignResponse is the wire response from the enclave's sign endpoint.
type SignResponse struct {
	Success      bool   `json:"success"`
	SignatureHex string `json:"signature,omitempty"`
	PublicKeyHex string `json:"publicKey,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Handler serves the enclave signing API. It is only ever mounted on a Unix
// domain socket listener; exposing it on a TCP port would break the trust
// boundary.
type Handler struct {
	signer *SimpleSigner
	log    *slog.Logger
}

// NewHandler creates the enclave HTTP handler.
func NewHandler(signer *SimpleSigner, log *slog.Logger) *Handler {
	return &Handler{signer: signer, log: log}
}

// Router returns the enclave's route tree.
func (h *Handler) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Post("/sign", h.handleSign)
	mux.Get("/pubkey", h.handlePubkey)
	return mux
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignBodySize))
	if err != nil {
		h.writeResponse(w, http.StatusBadRequest, SignResponse{Error: "failed to read request body"})
		return
	}

	var req SignRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeResponse(w, http.StatusBadRequest, SignResponse{Error: "invalid request body"})
		return
	}

	data, err := hex.DecodeString(req.PayloadHex)
	if err != nil {
		h.writeResponse(w, http.StatusBadRequest, SignResponse{Error: "payload is not valid hex"})
		return
	}

	signature, err := h.signer.SignPayload(data)
	if err != nil {
		h.log.Warn("Rejected sign request", "err", err, slog.Int("payloadLen", len(data)))
		h.writeResponse(w, http.StatusUnprocessableEntity, SignResponse{Error: err.Error()})
		return
	}

	h.log.Debug("Signed mint payload", slog.Int("payloadLen", len(data)))
	h.writeResponse(w, http.StatusOK, SignResponse{
		Success:      true,
		SignatureHex: hex.EncodeToString(signature),
		PublicKeyHex: hex.EncodeToString(h.signer.PublicKey()),
	})
}

func (h *Handler) handlePubkey(w http.ResponseWriter, r *http.Request) {
	h.writeResponse(w, http.StatusOK, SignResponse{
		Success:      true,
		PublicKeyHex: hex.EncodeToString(h.signer.PublicKey()),
	})
}

func (h *Handler) writeResponse(w http.ResponseWriter, status int, resp SignResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to write enclave response", "err", err)
	}
}
