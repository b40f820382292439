package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/surfkit/surfkit/internal/catalog"
	"github.com/surfkit/surfkit/internal/conversation"
	"github.com/surfkit/surfkit/internal/session"
	"github.com/surfkit/surfkit/internal/surface"
)

// ErrInvalidRequest indicates structurally malformed flow input. Nothing is
// created or invoked for such requests.
var ErrInvalidRequest = errors.New("invalid request")

// Flow names registered with Genkit.
const (
	StartSessionFlowName = "surfkit/startSession"
	GenerateUIFlowName   = "surfkit/generateUi"
)

// StartSessionInput is the request payload of the startSession flow.
type StartSessionInput struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Catalog         catalog.Catalog `json:"catalog"`
}

// StartSessionFlow is the request/response flow creating a session.
type StartSessionFlow = core.Flow[StartSessionInput, string, struct{}]

// DefineStartSessionFlow registers the startSession flow. It validates the
// request shape, then delegates to the lifecycle helper.
func DefineStartSessionFlow(g *genkit.Genkit, lifecycle *session.Lifecycle) *StartSessionFlow {
	return genkit.DefineFlow(g, StartSessionFlowName,
		func(ctx context.Context, input StartSessionInput) (string, error) {
			if input.ProtocolVersion == "" {
				return "", fmt.Errorf("%w: protocolVersion is required", ErrInvalidRequest)
			}
			if input.Catalog.IsZero() {
				return "", fmt.Errorf("%w: catalog is required", ErrInvalidRequest)
			}
			return lifecycle.Start(ctx, input.Catalog)
		})
}

// GenerateUIInput is the request payload of the generateUi flow.
type GenerateUIInput struct {
	SessionID    string                    `json:"sessionId"`
	Conversation conversation.Conversation `json:"conversation"`
}

// GenerateUIOutput is the aggregated terminal result of a generation call,
// resolved after the event stream is exhausted.
type GenerateUIOutput struct {
	SessionID    string                `json:"sessionId"`
	Text         string                `json:"text,omitempty"`
	ToolRequests []surface.ToolRequest `json:"toolRequests,omitempty"`
}

// GenerateUIFlow is the streaming flow driving a generation call. Streaming
// it yields the ordered event sequence and the terminal aggregate as one
// construct; running it non-streaming returns only the aggregate.
type GenerateUIFlow = core.Flow[GenerateUIInput, GenerateUIOutput, surface.Event]

// DefineGenerateUIFlow registers the generateUi flow on top of gen.
func DefineGenerateUIFlow(g *genkit.Genkit, gen *Generator) *GenerateUIFlow {
	return genkit.DefineStreamingFlow(g, GenerateUIFlowName,
		func(ctx context.Context, input GenerateUIInput, stream core.StreamCallback[surface.Event]) (GenerateUIOutput, error) {
			if input.SessionID == "" {
				return GenerateUIOutput{}, fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
			}

			var emit EventCallback
			if stream != nil {
				emit = func(ctx context.Context, ev surface.Event) error {
					return stream(ctx, ev)
				}
			}

			resp, err := gen.Generate(ctx, input.SessionID, input.Conversation, emit)
			if err != nil {
				return GenerateUIOutput{SessionID: input.SessionID}, err
			}

			out := GenerateUIOutput{
				SessionID: input.SessionID,
				Text:      resp.Text(),
			}
			for _, req := range resp.ToolRequests() {
				out.ToolRequests = append(out.ToolRequests, surface.ToolRequest{
					Name:  req.Name,
					Input: req.Input,
				})
			}
			return out, nil
		})
}
