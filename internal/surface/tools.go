// Package surface declares the two surface-mutation tool contracts and the
// event types relayed to generation callers.
//
// Tool "execution" in this system means observed-and-relayed, never
// performed. The handlers registered here are inert stubs that exist only
// because the model-calling protocol requires declared tools to be
// invocable; the authoritative signal is the tool request observed in the
// streaming fragments, which the orchestrator intercepts and forwards.
package surface

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool names declared to the model.
const (
	ToolAddOrUpdateSurface = "addOrUpdateSurface"
	ToolDeleteSurface      = "deleteSurface"
)

// AddOrUpdateInput is the input contract of addOrUpdateSurface. Definition
// is an arbitrary JSON value; the server never validates it against the
// catalog (validation is advisory, delegated to the model).
type AddOrUpdateInput struct {
	SurfaceID  string `json:"surfaceId"`
	Definition any    `json:"definition,omitempty"`
}

// DeleteInput is the input contract of deleteSurface.
type DeleteInput struct {
	SurfaceID string `json:"surfaceId"`
}

// Ack is the acknowledgment the inert handlers return to satisfy the tool
// protocol. Callers must never treat it as evidence of a mutation.
type Ack struct {
	Status string `json:"status"`
}

// DefineTools registers both mutation tools with Genkit and returns their
// refs in declaration order. The handlers accept whatever the model proposes
// and mutate nothing.
func DefineTools(g *genkit.Genkit) []ai.ToolRef {
	addOrUpdate := genkit.DefineTool(g, ToolAddOrUpdateSurface,
		"Add a new UI surface or replace the definition of an existing one.",
		func(_ *ai.ToolContext, _ AddOrUpdateInput) (Ack, error) {
			return Ack{Status: "updated"}, nil
		})

	del := genkit.DefineTool(g, ToolDeleteSurface,
		"Delete a UI surface.",
		func(_ *ai.ToolContext, _ DeleteInput) (Ack, error) {
			return Ack{Status: "deleted"}, nil
		})

	return []ai.ToolRef{addOrUpdate, del}
}

// EventType tags the variants of Event.
type EventType string

// Event variants.
const (
	EventTool EventType = "tool"
	EventText EventType = "text"
)

// ToolRequest is a mutation the model proposed mid-stream. Later requests
// for the same surface id supersede earlier ones at the client; the server
// only preserves arrival order.
type ToolRequest struct {
	Name  string `json:"name"`
	Input any    `json:"input"`
}

// Event is the unit emitted to a generation caller. Events are transient
// and never persisted.
type Event struct {
	Type EventType    `json:"type"`
	Tool *ToolRequest `json:"tool,omitempty"`
	Text string       `json:"text,omitempty"`
}

// NewToolEvent wraps a model tool request for relaying.
func NewToolEvent(req *ai.ToolRequest) Event {
	return Event{
		Type: EventTool,
		Tool: &ToolRequest{Name: req.Name, Input: req.Input},
	}
}

// NewTextEvent wraps trailing response text.
func NewTextEvent(text string) Event {
	return Event{Type: EventText, Text: text}
}
