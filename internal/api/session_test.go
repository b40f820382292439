package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStartSession_Success(t *testing.T) {
	ts := newTestServer(t)

	body := `{"protocolVersion":"1.0","catalog":{"version":"1.0","widgets":{"Text":{}}}}`
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body)
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.SessionID != "mock-session-id" {
		t.Errorf("sessionId = %q, want mock-session-id", resp.SessionID)
	}

	// The catalog must be retrievable under the returned id.
	cat, err := ts.store.Get(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("store.Get(%q) error: %v", resp.SessionID, err)
	}
	canon, err := cat.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}
	if canon != `{"version":"1.0","widgets":{"Text":{}}}` {
		t.Errorf("stored catalog = %s", canon)
	}
}

func TestStartSession_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"protocolVersion":`},
		{"missing protocol version", `{"catalog":{"a":1}}`},
		{"missing catalog", `{"protocolVersion":"1.0"}`},
		{"catalog not json", `{"protocolVersion":"1.0","catalog":}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body)
			}

			var resp errorPayload
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if resp.Code != "VALIDATION_ERROR" {
				t.Errorf("code = %q, want VALIDATION_ERROR", resp.Code)
			}
			if ts.store.Len() != 0 {
				t.Error("session was created for an invalid request")
			}
		})
	}
}

func TestStartSession_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
