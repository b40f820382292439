package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/surfkit/surfkit/internal/conversation"
	"github.com/surfkit/surfkit/internal/generate"
	"github.com/surfkit/surfkit/internal/session"
	"github.com/surfkit/surfkit/internal/surface"
)

// SSE event types for generation streaming.
const (
	eventTool  = "tool"  // A relayed tool invocation request
	eventText  = "text"  // Trailing response text
	eventDone  = "done"  // Stream completed, carries the aggregate
	eventError = "error" // Generation failed after zero or more events
)

// generateHandler serves the GenerateUi operation.
type generateHandler struct {
	generator *generate.Generator
	logger    *slog.Logger
}

// generateRequest is the GenerateUi wire format.
type generateRequest struct {
	SessionID    string                    `json:"sessionId"`
	Conversation conversation.Conversation `json:"conversation"`
}

// donePayload is the terminal SSE payload. Events already delivered are the
// authoritative mutation sequence; this carries the aggregate for callers
// that want it.
type donePayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text,omitempty"`
}

// stream handles POST /api/v1/generate/stream. Events are written as SSE in
// arrival order. A client disconnect cancels the request context, which
// terminates the upstream model call.
func (h *generateHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req generateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "VALIDATION_ERROR", Message: "invalid request body"})
		return
	}
	if req.SessionID == "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "VALIDATION_ERROR", Message: "sessionId is required"})
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "session_id", req.SessionID)

	emit := func(ctx context.Context, ev surface.Event) error {
		name := eventTool
		if ev.Type == surface.EventText {
			name = eventText
		}
		return writeEvent(w, flusher, name, ev)
	}

	resp, err := h.generator.Generate(ctx, req.SessionID, req.Conversation, emit)
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "session_id", req.SessionID)
			return
		}
		h.writeStreamError(w, flusher, err)
		return
	}

	_ = writeEvent(w, flusher, eventDone, donePayload{
		SessionID: req.SessionID,
		Text:      resp.Text(),
	})
	h.logger.Info("SSE stream completed", "session_id", req.SessionID)
}

// writeStreamError maps generation errors to SSE error events. Events
// already written stand; there is no rollback.
func (h *generateHandler) writeStreamError(w io.Writer, f http.Flusher, err error) {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, generate.ErrInvalidSession):
		code = "INVALID_SESSION"
	case errors.Is(err, generate.ErrModelFailed):
		code = "MODEL_ERROR"
	case errors.Is(err, conversation.ErrUntranslatable):
		code = "TRANSLATION_ERROR"
	case errors.Is(err, session.ErrStoreUnavailable):
		code = "STORE_ERROR"
	}

	h.logger.Error("generation stream failed", "code", code, "error", err)
	_ = writeEvent(w, f, eventError, errorPayload{Code: code, Message: err.Error()})
}

// writeEvent writes one SSE event with a JSON payload.
// Format: "event: <type>\ndata: <json>\n\n".
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
