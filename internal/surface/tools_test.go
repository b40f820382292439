package surface

import (
	"encoding/json"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/surfkit/surfkit/internal/testutil"
)

func TestDefineTools_RegistersBoth(t *testing.T) {
	g := testutil.NewGenkit(t)

	refs := DefineTools(g)
	if len(refs) != 2 {
		t.Fatalf("DefineTools() returned %d refs, want 2", len(refs))
	}

	if tool := genkit.LookupTool(g, ToolAddOrUpdateSurface); tool == nil {
		t.Errorf("tool %q not registered", ToolAddOrUpdateSurface)
	}
	if tool := genkit.LookupTool(g, ToolDeleteSurface); tool == nil {
		t.Errorf("tool %q not registered", ToolDeleteSurface)
	}
}

func TestNewToolEvent(t *testing.T) {
	ev := NewToolEvent(&ai.ToolRequest{
		Name:  ToolAddOrUpdateSurface,
		Input: map[string]any{"surfaceId": "main"},
	})

	if ev.Type != EventTool {
		t.Errorf("Type = %q, want %q", ev.Type, EventTool)
	}
	if ev.Tool == nil || ev.Tool.Name != ToolAddOrUpdateSurface {
		t.Fatalf("Tool = %+v, want addOrUpdateSurface request", ev.Tool)
	}
	if ev.Text != "" {
		t.Errorf("Text = %q, want empty on tool events", ev.Text)
	}
}

func TestNewTextEvent(t *testing.T) {
	ev := NewTextEvent("summary")

	if ev.Type != EventText {
		t.Errorf("Type = %q, want %q", ev.Type, EventText)
	}
	if ev.Text != "summary" {
		t.Errorf("Text = %q, want summary", ev.Text)
	}
	if ev.Tool != nil {
		t.Errorf("Tool = %+v, want nil on text events", ev.Tool)
	}
}

func TestEvent_JSONOmitsAbsentVariant(t *testing.T) {
	toolJSON, err := json.Marshal(NewToolEvent(&ai.ToolRequest{Name: ToolDeleteSurface}))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var toolMap map[string]any
	_ = json.Unmarshal(toolJSON, &toolMap)
	if _, ok := toolMap["text"]; ok {
		t.Errorf("tool event serializes a text field: %s", toolJSON)
	}

	textJSON, err := json.Marshal(NewTextEvent("hi"))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var textMap map[string]any
	_ = json.Unmarshal(textJSON, &textMap)
	if _, ok := textMap["tool"]; ok {
		t.Errorf("text event serializes a tool field: %s", textJSON)
	}
}
