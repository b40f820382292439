// Package conversation defines the generic conversation model exchanged with
// clients and its translation into Genkit's native message format.
//
// The conversation is a closed tagged union: every part carries a type tag
// and translation matches on it exhaustively. Unknown tags decode fine but
// map to a defined drop branch rather than failing the whole call.
package conversation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// ErrUntranslatable indicates conversation input that cannot be represented
// at all, such as an unknown role. Partially-specified parts are dropped,
// not failed; see Translate.
var ErrUntranslatable = errors.New("untranslatable conversation")

// Role identifies the author of a message.
type Role string

// Roles accepted in a conversation.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType tags the variants of Part.
type PartType string

// Part variants. Anything else is dropped during translation.
const (
	PartText  PartType = "text"
	PartImage PartType = "image"
	PartUI    PartType = "ui"
)

// Part is one unit of message content. Exactly the fields of the tagged
// variant are meaningful; the rest stay zero.
type Part struct {
	Type PartType `json:"type"`

	// PartText
	Text string `json:"text,omitempty"`

	// PartImage: exactly one of URL or Base64 should be populated.
	// MimeType is optional with URL, required with Base64.
	URL      string `json:"url,omitempty"`
	Base64   string `json:"base64,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// PartUI: a surface mutation a prior assistant turn requested, replayed
	// as conversational context.
	SurfaceID  string          `json:"surfaceId,omitempty"`
	Definition json.RawMessage `json:"definition,omitempty"`
}

// Message is one conversational turn. Part order is significant and is
// preserved end to end.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Conversation is the ordered sequence of turns sent with a generation call.
type Conversation []Message

// Validate checks the structural invariants the wire format promises:
// known roles and present part tags. Unknown part tags are fine (they drop
// at translation); unknown roles are not.
func (c Conversation) Validate() error {
	for i, msg := range c {
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrUntranslatable, i, msg.Role)
		}
		for j, part := range msg.Parts {
			if part.Type == "" {
				return fmt.Errorf("%w: message %d part %d is missing a type tag", ErrUntranslatable, i, j)
			}
		}
	}
	return nil
}

// aiRole maps a conversation role to its Genkit counterpart.
func aiRole(r Role) (ai.Role, error) {
	switch r {
	case RoleUser:
		return ai.RoleUser, nil
	case RoleAssistant:
		return ai.RoleModel, nil
	case RoleSystem:
		return ai.RoleSystem, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrUntranslatable, r)
	}
}

// ToolName names the mutation tool a replayed UI part is attributed to.
// It matches the addOrUpdateSurface contract in the surface package; declared
// here to keep the translator free of upward dependencies.
const ToolName = "addOrUpdateSurface"

// Translate converts a conversation into Genkit messages, preserving message
// and part order exactly. Per-part policy:
//
//   - text: verbatim text part.
//   - image with URL: media reference by URL, mime type as an optional hint.
//   - image with Base64 and MimeType: inline data-URI media part.
//   - image missing both, or with only one of Base64/MimeType: dropped.
//   - ui: synthesized tool-request part so the model sees what it previously
//     proposed, even though no tool ever executed server-side.
//   - unknown tags: dropped.
//
// Messages whose parts all drop still appear (empty), keeping turn order
// intact. Only structural violations fail; see Validate.
func Translate(conv Conversation) ([]*ai.Message, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}

	out := make([]*ai.Message, 0, len(conv))
	for _, msg := range conv {
		role, err := aiRole(msg.Role)
		if err != nil {
			return nil, err
		}

		parts := make([]*ai.Part, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if p := translatePart(part); p != nil {
				parts = append(parts, p)
			}
		}

		out = append(out, &ai.Message{Role: role, Content: parts})
	}
	return out, nil
}

// translatePart maps one part to its native form, or nil for the drop branch.
func translatePart(part Part) *ai.Part {
	switch part.Type {
	case PartText:
		return ai.NewTextPart(part.Text)

	case PartImage:
		switch {
		case part.URL != "":
			return ai.NewMediaPart(part.MimeType, part.URL)
		case part.Base64 != "" && part.MimeType != "":
			return ai.NewMediaPart(part.MimeType, "data:"+part.MimeType+";base64,"+part.Base64)
		default:
			// Partially specified image: explicit drop, not an error.
			return nil
		}

	case PartUI:
		var definition any
		if len(part.Definition) > 0 {
			// Definition is known-valid JSON by the time it reaches here; a
			// decode failure means it wasn't, so drop the replay record.
			if err := json.Unmarshal(part.Definition, &definition); err != nil {
				return nil
			}
		}
		return &ai.Part{
			Kind: ai.PartToolRequest,
			ToolRequest: &ai.ToolRequest{
				Name: ToolName,
				Input: map[string]any{
					"surfaceId":  part.SurfaceID,
					"definition": definition,
				},
			},
		}

	default:
		return nil
	}
}
