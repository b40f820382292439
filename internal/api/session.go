package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/surfkit/surfkit/internal/catalog"
	"github.com/surfkit/surfkit/internal/session"
)

// maxRequestBody bounds request bodies; catalogs are small documents.
const maxRequestBody = 1 << 20 // 1MB

// sessionHandler serves the StartSession operation.
type sessionHandler struct {
	lifecycle *session.Lifecycle
	logger    *slog.Logger
}

// startSessionRequest is the StartSession wire format.
type startSessionRequest struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Catalog         json.RawMessage `json:"catalog"`
}

// startSessionResponse carries the new session id.
type startSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// startSession handles POST /api/v1/sessions. Malformed requests are
// rejected before any session is created.
func (h *sessionHandler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.ProtocolVersion == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "protocolVersion is required")
		return
	}

	cat, err := catalog.New(req.Catalog)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "catalog must be a JSON value")
		return
	}

	id, err := h.lifecycle.Start(r.Context(), cat)
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "STORE_ERROR", "session store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: id})
}
