// Package testutil provides deterministic test doubles for the generation
// pipeline, chiefly a scripted Genkit model that replays canned streaming
// fragments without any network access.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ScriptedModelName is the model name tests pass to the generator.
const ScriptedModelName = "scripted/model"

// Turn is one scripted model response. Each tool request streams as its own
// fragment, in slice order, so ordering across fragments is observable.
type Turn struct {
	ToolRequests []*ai.ToolRequest
	Text         string
}

// ScriptedModel replays a fixed sequence of turns, one per model call. The
// tool-calling loop consumes one turn per round trip; when the script runs
// out, a text-only fallback turn is served so the loop terminates.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu       sync.Mutex
	turns    []Turn
	err      error
	fallback string
	requests []*ai.ModelRequest
}

// NewScriptedModel creates a model that serves fallback text once the
// scripted turns are exhausted.
func NewScriptedModel(fallback string) *ScriptedModel {
	return &ScriptedModel{fallback: fallback}
}

// AddTurn appends a scripted turn.
func (m *ScriptedModel) AddTurn(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
}

// FailWith makes every subsequent call return err instead of a response.
func (m *ScriptedModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of the model requests received so far.
func (m *ScriptedModel) Requests() []*ai.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*ai.ModelRequest, len(m.requests))
	copy(cp, m.requests)
	return cp
}

// Register registers the scripted model with Genkit under ScriptedModelName.
func (m *ScriptedModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ScriptedModelName, &ai.ModelOptions{
		Label: "Scripted Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      true,
		},
	}, m.generate)
}

func (m *ScriptedModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}
	turn := Turn{Text: m.fallback}
	if len(m.turns) > 0 {
		turn = m.turns[0]
		m.turns = m.turns[1:]
	}
	m.mu.Unlock()

	var parts []*ai.Part
	for _, tr := range turn.ToolRequests {
		part := &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr}
		parts = append(parts, part)
		if cb != nil {
			if err := cb(ctx, &ai.ModelResponseChunk{Content: []*ai.Part{part}}); err != nil {
				return nil, err
			}
		}
	}
	if turn.Text != "" {
		parts = append(parts, ai.NewTextPart(turn.Text))
		if cb != nil {
			if err := cb(ctx, &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(turn.Text)}}); err != nil {
				return nil, err
			}
		}
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}

// NewGenkit initializes a Genkit instance for tests.
func NewGenkit(t *testing.T) *genkit.Genkit {
	t.Helper()
	g := genkit.Init(context.Background())
	if g == nil {
		t.Fatal("initializing genkit")
	}
	return g
}
