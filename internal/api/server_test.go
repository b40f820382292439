package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/surfkit/surfkit/internal/generate"
	"github.com/surfkit/surfkit/internal/session"
	"github.com/surfkit/surfkit/internal/surface"
	"github.com/surfkit/surfkit/internal/testutil"
)

// testServer bundles the handler with the doubles behind it.
type testServer struct {
	handler http.Handler
	model   *testutil.ScriptedModel
	store   *session.MemoryStore
}

// newTestServer builds a full server on the memory store and scripted model.
// Session ids are deterministic ("mock-session-id").
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	g := testutil.NewGenkit(t)
	model := testutil.NewScriptedModel("all done")
	model.Register(g)

	store := session.NewMemoryStore(0, logger)
	lc := session.NewLifecycle(store, logger,
		session.WithIDGenerator(func() string { return "mock-session-id" }))

	gen, err := generate.New(generate.Config{
		Genkit:    g,
		Sessions:  store,
		Tools:     surface.DefineTools(g),
		Logger:    logger,
		ModelName: testutil.ScriptedModelName,
	})
	if err != nil {
		t.Fatalf("generate.New() error: %v", err)
	}

	srv, err := NewServer(ServerConfig{
		Logger:    logger,
		Lifecycle: lc,
		Generator: gen,
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	return &testServer{handler: srv.Handler(), model: model, store: store}
}

func TestNewServer_RequiredDeps(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer(empty config) expected error, got nil")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", rec.Code)
	}
}
