// Package catalog models the widget catalog bound to a session.
//
// A catalog is a JSON Schema document whose properties enumerate the widget
// kinds a renderer supports. The server treats it as an opaque JSON value:
// it must parse as JSON, but conformance to any meta-schema is advisory and
// delegated to the model through the instruction block.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/gowebpki/jcs"
)

// ErrInvalidCatalog indicates the catalog value is not syntactically valid JSON.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an immutable JSON Schema value describing the widgets a
// session's renderer can draw. The zero value is not useful; construct
// with New.
type Catalog struct {
	raw json.RawMessage
}

// New validates that raw is well-formed JSON and wraps it.
// Only syntax is checked here; schema semantics are never enforced.
func New(raw json.RawMessage) (Catalog, error) {
	if len(raw) == 0 || !json.Valid(raw) {
		return Catalog{}, ErrInvalidCatalog
	}
	// Keep our own copy so callers can't mutate the catalog after creation.
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Catalog{raw: cp}, nil
}

// Raw returns a copy of the underlying JSON document.
func (c Catalog) Raw() json.RawMessage {
	cp := make(json.RawMessage, len(c.raw))
	copy(cp, c.raw)
	return cp
}

// IsZero reports whether the catalog is the useless zero value.
func (c Catalog) IsZero() bool {
	return len(c.raw) == 0
}

// MarshalJSON emits the catalog document verbatim.
func (c Catalog) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// UnmarshalJSON validates and stores the raw document.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	parsed, err := New(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Canonical returns the RFC 8785 (JCS) canonical form of the catalog.
// The canonical form is what gets embedded in the model instruction, so the
// same catalog always produces byte-identical prompts.
func (c Catalog) Canonical() (string, error) {
	if c.IsZero() {
		return "", ErrInvalidCatalog
	}
	out, err := jcs.Transform(c.raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return string(out), nil
}

// Compile attempts to interpret the catalog as a JSON Schema.
// This is purely advisory: callers log a warning on failure and continue,
// because the server never validates tool invocations against the schema.
func (c Catalog) Compile() (*jsonschema.Schema, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(c.raw, &s); err != nil {
		return nil, fmt.Errorf("catalog is not a usable JSON schema: %w", err)
	}
	return &s, nil
}

// Instruction builds the system instruction for a generation call. Its sole
// content constraint is that every addOrUpdateSurface definition must conform
// to the session's catalog schema; adherence is up to the model.
func Instruction(c Catalog) (string, error) {
	schema, err := c.Canonical()
	if err != nil {
		return "", err
	}
	return `You are a UI generation assistant. You manipulate named UI surfaces ` +
		`exclusively through the provided tools: addOrUpdateSurface to create or replace ` +
		`a surface, and deleteSurface to remove one.

The "definition" argument of every addOrUpdateSurface call MUST conform to the ` +
		`following widget catalog, a JSON Schema describing the components the client ` +
		`can render:

` + schema + `

Do not invent widget kinds or fields that are absent from the catalog.`, nil
}
