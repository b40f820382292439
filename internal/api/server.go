// Package api exposes the session and generation operations over HTTP.
//
// Two logical operations exist: StartSession (request/response JSON) and
// GenerateUi (request/stream over SSE, plus a synchronous variant served by
// the Genkit flow handler). Multi-tenant authorization is out of scope; the
// only cross-cutting middleware is per-IP rate limiting and request logging.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/surfkit/surfkit/internal/generate"
	"github.com/surfkit/surfkit/internal/session"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Lifecycle *session.Lifecycle  // Required
	Generator *generate.Generator // Required
	Flow      *generate.GenerateUIFlow
	RateBurst int // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON/SSE HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Lifecycle == nil {
		return nil, errors.New("session lifecycle is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sh := &sessionHandler{lifecycle: cfg.Lifecycle, logger: logger}
	gh := &generateHandler{generator: cfg.Generator, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)

	mux.HandleFunc("POST /api/v1/sessions", sh.startSession)
	mux.HandleFunc("POST /api/v1/generate/stream", gh.stream)

	// Synchronous generation goes straight through the Genkit flow handler.
	if cfg.Flow != nil {
		mux.Handle("POST /api/v1/generate", genkit.Handler(cfg.Flow))
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newThrottle(1.0, burst)

	var handler http.Handler = mux
	handler = withThrottle(rl, logger)(handler)
	handler = withRecovery(logger)(handler)
	handler = withRequestLog(logger)(handler)

	wrapped := http.NewServeMux()
	wrapped.Handle("/", handler)
	return &Server{mux: wrapped}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// health serves liveness probes.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
