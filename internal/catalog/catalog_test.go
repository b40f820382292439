package catalog

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew_ValidJSON(t *testing.T) {
	c, err := New(json.RawMessage(`{"version":"1.0","properties":{}}`))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.IsZero() {
		t.Error("New() returned zero catalog for valid JSON")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"truncated object", `{"version":`},
		{"bare word", `catalog`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(json.RawMessage(tt.raw))
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("New(%q) error = %v, want ErrInvalidCatalog", tt.raw, err)
			}
		})
	}
}

func TestNew_DefensiveCopy(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	c, err := New(raw)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	raw[2] = 'x'

	if got := string(c.Raw()); got != `{"a":1}` {
		t.Errorf("catalog mutated through caller's slice: %s", got)
	}
}

func TestCanonical_SortsKeys(t *testing.T) {
	c, err := New(json.RawMessage(`{"zebra": 1, "alpha": {"c": true, "b": false}}`))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := c.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}

	want := `{"alpha":{"b":false,"c":true},"zebra":1}`
	if got != want {
		t.Errorf("Canonical() = %s, want %s", got, want)
	}
}

func TestCanonical_Deterministic(t *testing.T) {
	a, _ := New(json.RawMessage(`{"b":2,"a":1}`))
	b, _ := New(json.RawMessage(`{"a":1,"b":2}`))

	ca, err := a.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}
	cb, err := b.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}
	if ca != cb {
		t.Errorf("equivalent catalogs canonicalize differently: %s vs %s", ca, cb)
	}
}

func TestCanonical_ZeroValue(t *testing.T) {
	var c Catalog
	if _, err := c.Canonical(); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("Canonical() on zero catalog error = %v, want ErrInvalidCatalog", err)
	}
}

func TestCompile_Advisory(t *testing.T) {
	schema, err := New(json.RawMessage(`{"type":"object","properties":{"Text":{"type":"object"}}}`))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := schema.Compile(); err != nil {
		t.Errorf("Compile() on valid schema error: %v", err)
	}

	notSchema, err := New(json.RawMessage(`[1,2,3]`))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := notSchema.Compile(); err == nil {
		t.Error("Compile() on array expected error, got nil")
	}
}

func TestInstruction_EmbedsCanonicalSchema(t *testing.T) {
	c, err := New(json.RawMessage(`{"b": 2, "a": 1}`))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	instr, err := Instruction(c)
	if err != nil {
		t.Fatalf("Instruction() error: %v", err)
	}

	if !strings.Contains(instr, `{"a":1,"b":2}`) {
		t.Errorf("Instruction() missing canonical schema:\n%s", instr)
	}
	if !strings.Contains(instr, "addOrUpdateSurface") {
		t.Error("Instruction() does not mention addOrUpdateSurface")
	}
	if !strings.Contains(instr, "deleteSurface") {
		t.Error("Instruction() does not mention deleteSurface")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Catalog Catalog `json:"catalog"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"catalog":{"version":"1.0"}}`), &p); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if p.Catalog.IsZero() {
		t.Fatal("unmarshalled catalog is zero")
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if got := string(out); got != `{"catalog":{"version":"1.0"}}` {
		t.Errorf("Marshal() = %s", got)
	}
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	var c Catalog
	if err := c.UnmarshalJSON([]byte(``)); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("UnmarshalJSON(empty) error = %v, want ErrInvalidCatalog", err)
	}
}
