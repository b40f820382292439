// Package generate implements the session-scoped generation pipeline.
//
// A generation call resolves the session's catalog, constrains a streaming
// model call to it, and relays the model's tool invocation requests and
// trailing text as an ordered event stream. The pipeline performs no writes
// to session state, so concurrent calls against the same session are safe.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/surfkit/surfkit/internal/catalog"
	"github.com/surfkit/surfkit/internal/conversation"
	"github.com/surfkit/surfkit/internal/session"
	"github.com/surfkit/surfkit/internal/surface"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrInvalidSession indicates the session id is unknown or expired. The
	// model is never invoked and no events are emitted.
	ErrInvalidSession = errors.New("invalid session")

	// ErrModelFailed wraps streaming-provider failures. Events emitted
	// before the failure remain delivered; nothing is retracted.
	ErrModelFailed = errors.New("model call failed")
)

// EventCallback receives each event in arrival order. Returning an error
// aborts the upstream model call.
type EventCallback func(ctx context.Context, ev surface.Event) error

// Config carries the Generator's dependencies. All of them are injected;
// there is no ambient default store or model.
type Config struct {
	Genkit   *genkit.Genkit
	Sessions session.Store
	Tools    []ai.ToolRef
	Logger   *slog.Logger

	// ModelName selects the model, e.g. "googleai/gemini-2.5-flash".
	ModelName string

	// MaxTurns bounds the tool-calling loop. Zero uses Genkit's default.
	MaxTurns int

	// Generation tuning passed through to the provider. Zero values are
	// omitted so the provider default applies.
	Temperature     float32
	MaxOutputTokens int
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Generator orchestrates generation calls. It is stateless between calls
// and safe for concurrent use.
type Generator struct {
	g         *genkit.Genkit
	sessions  session.Store
	tools     []ai.ToolRef
	logger    *slog.Logger
	modelName string
	maxTurns  int
	genConfig *genai.GenerateContentConfig
}

// New creates a Generator from cfg.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var genConfig *genai.GenerateContentConfig
	if cfg.Temperature > 0 || cfg.MaxOutputTokens > 0 {
		genConfig = &genai.GenerateContentConfig{}
		if cfg.Temperature > 0 {
			genConfig.Temperature = genai.Ptr(cfg.Temperature)
		}
		if cfg.MaxOutputTokens > 0 {
			genConfig.MaxOutputTokens = int32(cfg.MaxOutputTokens)
		}
	}

	return &Generator{
		g:         cfg.Genkit,
		sessions:  cfg.Sessions,
		tools:     cfg.Tools,
		logger:    cfg.Logger,
		modelName: cfg.ModelName,
		maxTurns:  cfg.MaxTurns,
		genConfig: genConfig,
	}, nil
}

// Generate runs one generation call against the session identified by
// sessionID. Events are delivered to emit in arrival order:
//
//   - one tool event per tool invocation request, in the order requests
//     appear within and across streaming fragments;
//   - at most one trailing text event, after the stream is exhausted, when
//     the aggregated response carries non-empty text. Textual fragments are
//     never relayed mid-stream.
//
// The aggregated model response is returned once the stream completes. On
// failure the triggering error is returned with its kind intact; events
// already delivered stand. Cancelling ctx, or returning an error from emit,
// terminates the upstream model call.
func (gen *Generator) Generate(ctx context.Context, sessionID string, conv conversation.Conversation, emit EventCallback) (*ai.ModelResponse, error) {
	cat, err := gen.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			gen.logger.Error("invalid session id", "session_id", sessionID)
			return nil, fmt.Errorf("%w: %s", ErrInvalidSession, sessionID)
		}
		return nil, err
	}
	gen.logger.Debug("resolved session catalog", "session_id", sessionID)

	// Advisory only: a catalog that doesn't parse as a schema still ships to
	// the model verbatim, it just deserves a warning in the logs.
	if _, err := cat.Compile(); err != nil {
		gen.logger.Warn("session catalog is not a well-formed JSON schema", "session_id", sessionID, "error", err)
	}

	instruction, err := catalog.Instruction(cat)
	if err != nil {
		return nil, err
	}

	messages, err := conversation.Translate(conv)
	if err != nil {
		return nil, err
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithSystem(instruction),
		ai.WithMessages(messages...),
		ai.WithTools(gen.tools...),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return gen.relayToolRequests(ctx, chunk, emit)
		}),
	}
	if gen.maxTurns > 0 {
		opts = append(opts, ai.WithMaxTurns(gen.maxTurns))
	}
	if gen.genConfig != nil {
		opts = append(opts, ai.WithConfig(gen.genConfig))
	}

	gen.logger.Debug("starting generation",
		"session_id", sessionID,
		"model", gen.modelName,
		"messages", len(messages),
	)

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		if ctx.Err() != nil {
			// Caller abandoned the stream; not a provider fault.
			return nil, err
		}
		gen.logger.Error("generation failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
	}

	if text := resp.Text(); text != "" && emit != nil {
		if err := emit(ctx, surface.NewTextEvent(text)); err != nil {
			return nil, err
		}
	}

	gen.logger.Info("generation completed",
		"session_id", sessionID,
		"tool_requests", len(resp.ToolRequests()),
	)
	return resp, nil
}

// relayToolRequests forwards the tool invocation requests of one streaming
// fragment, preserving their order within the fragment. Text content is
// deliberately withheld until the terminal response.
func (gen *Generator) relayToolRequests(ctx context.Context, chunk *ai.ModelResponseChunk, emit EventCallback) error {
	if chunk == nil || emit == nil {
		return nil
	}
	for _, part := range chunk.Content {
		if part == nil || part.ToolRequest == nil {
			continue
		}
		gen.logger.Info("relaying tool request", "tool", part.ToolRequest.Name)
		if err := emit(ctx, surface.NewToolEvent(part.ToolRequest)); err != nil {
			return err
		}
	}
	return nil
}
