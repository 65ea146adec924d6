package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesFromConversation(t *testing.T) {
	conv := turns.NewConversation("persona", "hello")
	require.NoError(t, conv.Append(
		turns.NewAssistantTurn("", turns.ToolCall{ID: "call_1", Name: "check_eligibility", Arguments: map[string]any{"user_details": "25"}}),
		turns.NewToolResultTurn("call_1", "No specific schemes found for this profile."),
	))

	msgs, err := messagesFromConversation(conv)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, go_openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, go_openai.ChatMessageRoleUser, msgs[1].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, `{"user_details":"25"}`, msgs[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, go_openai.ChatMessageRoleTool, msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
}

func TestTurnFromMessageKeepsMalformedArguments(t *testing.T) {
	out := turnFromMessage(go_openai.ChatCompletionMessage{
		Role: go_openai.ChatMessageRoleAssistant,
		ToolCalls: []go_openai.ToolCall{
			{ID: "a", Function: go_openai.FunctionCall{Name: "x", Arguments: `{"user_details":"25"}`}},
			{ID: "b", Function: go_openai.FunctionCall{Name: "y", Arguments: `{broken`}},
		},
	})
	require.Len(t, out.ToolCalls, 2)
	assert.Equal(t, "25", out.ToolCalls[0].Arguments["user_details"])
	assert.Equal(t, "{broken", out.ToolCalls[1].Arguments[tools.RawArgumentsKey])
}

func TestRunInferenceAgainstFakeServer(t *testing.T) {
	var got go_openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(go_openai.ChatCompletionResponse{
			Choices: []go_openai.ChatCompletionChoice{{
				Message: go_openai.ChatCompletionMessage{
					Role: go_openai.ChatMessageRoleAssistant,
					ToolCalls: []go_openai.ToolCall{{
						ID:       "call_9",
						Type:     go_openai.ToolTypeFunction,
						Function: go_openai.FunctionCall{Name: "get_scheme_documents", Arguments: `{"scheme_name":"PM Kisan"}`},
					}},
				},
				FinishReason: go_openai.FinishReasonToolCalls,
			}},
		})
	}))
	defer srv.Close()

	e, err := NewOpenAIEngine(config.ModelSettings{Name: "gpt-4o-mini", APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	def, err := tools.NewTool("get_scheme_documents", "docs", func(_ context.Context, in struct {
		SchemeName string `json:"scheme_name"`
	}) (string, error) {
		return in.SchemeName, nil
	})
	require.NoError(t, err)

	out, err := e.RunInference(context.Background(), turns.NewConversation("persona", "PM Kisan?"), []tools.ToolDefinition{def})
	require.NoError(t, err)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_9", out.ToolCalls[0].ID)
	assert.Equal(t, "PM Kisan", out.ToolCalls[0].Arguments["scheme_name"])

	require.Len(t, got.Tools, 1)
	assert.Equal(t, "get_scheme_documents", got.Tools[0].Function.Name)
	assert.Equal(t, "gpt-4o-mini", got.Model)
}
