package engine

import (
	"context"

	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/turns"
)

// Engine is the model collaborator of the planner. Engines handle
// provider-specific logic for Gemini, OpenAI, etc.
type Engine interface {
	// RunInference sends the conversation and the available tools to the model
	// and returns the resulting assistant turn. The conversation is not modified;
	// appending the turn is up to the caller.
	RunInference(ctx context.Context, conv *turns.Conversation, defs []tools.ToolDefinition) (turns.Turn, error)
}

// EngineFunc adapts a function to Engine. Mostly useful in tests.
type EngineFunc func(ctx context.Context, conv *turns.Conversation, defs []tools.ToolDefinition) (turns.Turn, error)

func (f EngineFunc) RunInference(ctx context.Context, conv *turns.Conversation, defs []tools.ToolDefinition) (turns.Turn, error) {
	return f(ctx, conv, defs)
}
