package toolloop

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/inference/engine"
	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Plan asks the engine for the next assistant turn. The conversation is only
// read; the returned turn is normalized but not appended.
func Plan(ctx context.Context, eng engine.Engine, conv *turns.Conversation, defs []tools.ToolDefinition, timeout time.Duration) (turns.Turn, error) {
	if conv.Len() == 0 {
		return turns.Turn{}, errors.New("cannot plan on an empty conversation")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := eng.RunInference(ctx, conv, defs)
	if err != nil {
		return turns.Turn{}, &ModelUnavailableError{Cause: err}
	}
	return normalize(conv, out), nil
}

// normalize coerces whatever the engine returned into an assistant turn with
// trimmed text and fully identified tool calls. Call ids that repeat within the
// turn or were already emitted in conv are replaced by fresh ones.
func normalize(conv *turns.Conversation, t turns.Turn) turns.Turn {
	used := map[string]bool{}
	for _, prev := range conv.Turns {
		for _, c := range prev.ToolCalls {
			used[c.ID] = true
		}
	}

	var calls []turns.ToolCall
	for _, c := range t.ToolCalls {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" || used[c.ID] {
			c.ID = uuid.NewString()
		}
		used[c.ID] = true
		calls = append(calls, c)
	}
	return turns.NewAssistantTurn(strings.TrimSpace(t.Text), calls...)
}
