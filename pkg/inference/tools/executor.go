package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/events"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Executor resolves tool calls against a Registry and turns every outcome,
// including unknown tools and handler failures, into a tool_result turn.
type Executor struct {
	registry *Registry
	config   ToolConfig
}

func NewExecutor(registry *Registry, cfg ToolConfig) *Executor {
	return &Executor{registry: registry, config: cfg}
}

func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs the calls and returns one tool_result turn per call, in the
// order of the input. A failing call never cancels its siblings.
func (e *Executor) Execute(ctx context.Context, calls []turns.ToolCall) []turns.Turn {
	results := make([]turns.Turn, len(calls))
	if len(calls) == 0 {
		return results
	}

	parallel := e.config.MaxParallelTools
	if parallel <= 1 || len(calls) == 1 {
		for i, call := range calls {
			results[i] = turns.NewToolResultTurn(call.ID, e.executeOne(ctx, call))
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = turns.NewToolResultTurn(call.ID, e.executeOne(ctx, call))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) executeOne(ctx context.Context, call turns.ToolCall) string {
	start := time.Now()
	convID := events.ConversationIDFromContext(ctx)

	ev := events.New(events.EventTypeToolCall, convID)
	ev.Tool = call.Name
	ev.CallID = call.ID
	ev.Text = maskArguments(call.Arguments)
	events.PublishEventToContext(ctx, ev)

	content, err := e.invoke(ctx, call)
	if err != nil {
		content = err.Error()
	}

	res := events.New(events.EventTypeToolResult, convID)
	res.Tool = call.Name
	res.CallID = call.ID
	res.Text = content
	if err != nil {
		res.Error = err.Error()
	}
	events.PublishEventToContext(ctx, res)

	log.Debug().
		Str("tool", call.Name).
		Str("call_id", call.ID).
		Dur("duration", time.Since(start)).
		Bool("failed", err != nil).
		Msg("tool call finished")
	return content
}

// invoke returns the observation text, or an error whose message is already
// the text the model should see.
func (e *Executor) invoke(ctx context.Context, call turns.ToolCall) (string, error) {
	def, ok := e.registry.Lookup(call.Name)
	if !ok {
		return "", errors.Errorf("unknown tool: %s", call.Name)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := e.runOnce(ctx, def, call)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt >= e.config.RetryConfig.MaxRetries || ctx.Err() != nil {
			break
		}
		backoff := e.config.RetryConfig.backoff(attempt)
		log.Debug().Err(err).Str("tool", call.Name).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("retrying tool call")
		select {
		case <-ctx.Done():
			return "", errors.Errorf("tool failed: %v", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return "", errors.Errorf("tool failed: %v", lastErr)
}

func (e *Executor) runOnce(ctx context.Context, def ToolDefinition, call turns.ToolCall) (out string, err error) {
	if e.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ExecutionTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("tool", call.Name).Msg("tool handler panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return def.Function(ctx, args)
}

func maskArguments(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
