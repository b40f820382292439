package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/surfkit/surfkit/internal/catalog"
)

func testCatalog(t *testing.T, raw string) catalog.Catalog {
	t.Helper()
	c, err := catalog.New(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("catalog.New(%q) error: %v", raw, err)
	}
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(0, discardLogger())
	ctx := context.Background()
	cat := testCatalog(t, `{"version":"1.0"}`)

	if err := store.Put(ctx, "s1", cat); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got.Raw()) != `{"version":"1.0"}` {
		t.Errorf("Get() = %s, want stored catalog", got.Raw())
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore(0, discardLogger())
	ctx := context.Background()

	if err := store.Put(ctx, "s1", testCatalog(t, `{"v":1}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := store.Put(ctx, "s1", testCatalog(t, `{"v":2}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got.Raw()) != `{"v":2}` {
		t.Errorf("Get() = %s, want overwritten catalog", got.Raw())
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore(0, discardLogger())

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(time.Hour, discardLogger())
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Put(ctx, "s1", testCatalog(t, `{}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// Still fresh just before the deadline.
	store.now = func() time.Time { return now.Add(59 * time.Minute) }
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("Get() before expiry error: %v", err)
	}

	// Expired entries are invisible and reaped on read.
	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() after expiry error = %v, want ErrSessionNotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() after lazy reap = %d, want 0", store.Len())
	}
}

func TestMemoryStore_PutRestartsTTL(t *testing.T) {
	store := NewMemoryStore(time.Hour, discardLogger())
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	if err := store.Put(ctx, "s1", testCatalog(t, `{}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// Rewrite half way through; the clock then passes the original deadline.
	store.now = func() time.Time { return now.Add(30 * time.Minute) }
	if err := store.Put(ctx, "s1", testCatalog(t, `{}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	store.now = func() time.Time { return now.Add(80 * time.Minute) }
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Errorf("Get() after TTL restart error: %v", err)
	}
}
