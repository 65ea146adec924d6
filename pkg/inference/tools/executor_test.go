package tools

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/events"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo"`
}

func mustTool[In any](t *testing.T, name string, fn func(context.Context, In) (string, error)) ToolDefinition {
	t.Helper()
	def, err := NewTool(name, "test tool "+name, fn)
	require.NoError(t, err)
	return def
}

func newTestExecutor(t *testing.T, cfg ToolConfig) *Executor {
	t.Helper()
	echo := mustTool(t, "echo", func(_ context.Context, in echoInput) (string, error) {
		return "echo: " + in.Text, nil
	})
	fail := mustTool(t, "fail", func(_ context.Context, _ echoInput) (string, error) {
		return "", errors.New("backend unreachable")
	})
	boom := mustTool(t, "boom", func(_ context.Context, _ echoInput) (string, error) {
		panic("kaboom")
	})
	reg, err := NewRegistry(echo, fail, boom)
	require.NoError(t, err)
	return NewExecutor(reg, cfg)
}

func TestExecuteEmptyIsIdentity(t *testing.T) {
	ex := newTestExecutor(t, DefaultToolConfig())
	assert.Empty(t, ex.Execute(context.Background(), nil))
	assert.Empty(t, ex.Execute(context.Background(), []turns.ToolCall{}))
}

func TestExecuteUnknownTool(t *testing.T) {
	ex := newTestExecutor(t, DefaultToolConfig())
	out := ex.Execute(context.Background(), []turns.ToolCall{{ID: "c1", Name: "get_scheme_docs"}})
	require.Len(t, out, 1)
	assert.Equal(t, turns.RoleToolResult, out[0].Role)
	assert.Equal(t, "c1", out[0].ToolCallID)
	assert.Equal(t, "unknown tool: get_scheme_docs", out[0].Text)
}

func TestExecuteConvertsFailures(t *testing.T) {
	ex := newTestExecutor(t, DefaultToolConfig())
	out := ex.Execute(context.Background(), []turns.ToolCall{
		{ID: "a", Name: "fail", Arguments: map[string]any{"text": "x"}},
		{ID: "b", Name: "boom", Arguments: map[string]any{"text": "x"}},
		{ID: "c", Name: "echo", Arguments: map[string]any{RawArgumentsKey: "{not json"}},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "tool failed: backend unreachable", out[0].Text)
	assert.Equal(t, "tool failed: panic: kaboom", out[1].Text)
	assert.Contains(t, out[2].Text, "tool failed: malformed arguments")
}

func TestExecutePreservesOrder(t *testing.T) {
	for _, parallel := range []int{1, 4} {
		t.Run(fmt.Sprintf("parallel=%d", parallel), func(t *testing.T) {
			ex := newTestExecutor(t, DefaultToolConfig().WithMaxParallelTools(parallel))
			var calls []turns.ToolCall
			for i := 0; i < 10; i++ {
				name := "echo"
				if i%3 == 0 {
					name = "missing"
				}
				calls = append(calls, turns.ToolCall{
					ID:        fmt.Sprintf("call-%d", i),
					Name:      name,
					Arguments: map[string]any{"text": fmt.Sprint(i)},
				})
			}
			out := ex.Execute(context.Background(), calls)
			require.Len(t, out, len(calls))
			for i, r := range out {
				assert.Equal(t, calls[i].ID, r.ToolCallID)
				if calls[i].Name == "missing" {
					assert.Equal(t, "unknown tool: missing", r.Text)
				} else {
					assert.Equal(t, fmt.Sprintf("echo: %d", i), r.Text)
				}
			}
		})
	}
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	flaky := mustTool(t, "flaky", func(_ context.Context, _ echoInput) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})
	reg, err := NewRegistry(flaky)
	require.NoError(t, err)
	cfg := DefaultToolConfig().WithRetryConfig(RetryConfig{MaxRetries: 2, BackoffBase: time.Millisecond, BackoffFactor: 1})
	out := NewExecutor(reg, cfg).Execute(context.Background(), []turns.ToolCall{{ID: "x", Name: "flaky"}})
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Text)
	assert.Equal(t, 3, attempts)
}

func TestExecuteAppliesTimeout(t *testing.T) {
	slow := mustTool(t, "slow", func(ctx context.Context, _ echoInput) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	reg, err := NewRegistry(slow)
	require.NoError(t, err)
	out := NewExecutor(reg, DefaultToolConfig().WithExecutionTimeout(10*time.Millisecond)).
		Execute(context.Background(), []turns.ToolCall{{ID: "x", Name: "slow"}})
	assert.Equal(t, "tool failed: context deadline exceeded", out[0].Text)
}

func TestExecutePublishesEvents(t *testing.T) {
	var mu sync.Mutex
	var seen []events.Event
	sink := events.EventSinkFunc(func(e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
		return nil
	})
	ctx := events.WithEventSinks(events.WithConversationID(context.Background(), "conv-1"), sink)

	ex := newTestExecutor(t, DefaultToolConfig())
	ex.Execute(ctx, []turns.ToolCall{{ID: "a", Name: "echo", Arguments: map[string]any{"text": "hi"}}})

	require.Len(t, seen, 2)
	assert.Equal(t, events.EventTypeToolCall, seen[0].Type)
	assert.Equal(t, `{"text":"hi"}`, seen[0].Text)
	assert.Equal(t, events.EventTypeToolResult, seen[1].Type)
	assert.Equal(t, "echo: hi", seen[1].Text)
	assert.Equal(t, "conv-1", seen[1].ConversationID)
}
