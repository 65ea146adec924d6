package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/inference/engine"
	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine implements the Engine interface on top of Chat Completions.
type OpenAIEngine struct {
	client   *go_openai.Client
	settings config.ModelSettings
}

func NewOpenAIEngine(s config.ModelSettings) (*OpenAIEngine, error) {
	if s.APIKey == "" {
		return nil, errors.New("missing openai API key")
	}
	cfg := go_openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &OpenAIEngine{client: go_openai.NewClientWithConfig(cfg), settings: s}, nil
}

func (e *OpenAIEngine) RunInference(ctx context.Context, conv *turns.Conversation, defs []tools.ToolDefinition) (turns.Turn, error) {
	req, err := e.buildRequest(conv, defs)
	if err != nil {
		return turns.Turn{}, err
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return turns.Turn{}, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return turns.NewAssistantTurn(""), nil
	}

	choice := resp.Choices[0]
	out := turnFromMessage(choice.Message)
	log.Debug().
		Str("model", e.settings.Name).
		Dur("duration", time.Since(start)).
		Str("finish_reason", string(choice.FinishReason)).
		Int("input_tokens", resp.Usage.PromptTokens).
		Int("output_tokens", resp.Usage.CompletionTokens).
		Int("tool_call_count", len(out.ToolCalls)).
		Msg("OpenAI RunInference completed")
	return out, nil
}

func (e *OpenAIEngine) buildRequest(conv *turns.Conversation, defs []tools.ToolDefinition) (go_openai.ChatCompletionRequest, error) {
	msgs, err := messagesFromConversation(conv)
	if err != nil {
		return go_openai.ChatCompletionRequest{}, err
	}
	req := go_openai.ChatCompletionRequest{
		Model:       e.settings.Name,
		Messages:    msgs,
		Temperature: e.settings.Temperature,
		TopP:        e.settings.TopP,
		MaxTokens:   int(e.settings.MaxOutputTokens),
	}
	for _, td := range defs {
		req.Tools = append(req.Tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}
	return req, nil
}

func messagesFromConversation(conv *turns.Conversation) ([]go_openai.ChatCompletionMessage, error) {
	var msgs []go_openai.ChatCompletionMessage
	for _, t := range conv.Turns {
		switch t.Role {
		case turns.RoleSystem:
			msgs = append(msgs, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: t.Text})
		case turns.RoleUser:
			msgs = append(msgs, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: t.Text})
		case turns.RoleAssistant:
			m := go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleAssistant, Content: t.Text}
			for _, c := range t.ToolCalls {
				args, err := json.Marshal(c.Arguments)
				if err != nil {
					return nil, errors.Wrapf(err, "encode arguments of %s", c.Name)
				}
				m.ToolCalls = append(m.ToolCalls, go_openai.ToolCall{
					ID:   c.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      c.Name,
						Arguments: string(args),
					},
				})
			}
			msgs = append(msgs, m)
		case turns.RoleToolResult:
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    t.Text,
				ToolCallID: t.ToolCallID,
			})
		}
	}
	return msgs, nil
}

// turnFromMessage decodes tool call arguments. Arguments that are not a JSON
// object are kept under tools.RawArgumentsKey so the executor reports them.
func turnFromMessage(m go_openai.ChatCompletionMessage) turns.Turn {
	var calls []turns.ToolCall
	for _, tc := range m.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				log.Warn().Err(err).Str("tool", tc.Function.Name).Msg("OpenAI returned malformed tool arguments")
				args = map[string]any{tools.RawArgumentsKey: raw}
			}
		}
		calls = append(calls, turns.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return turns.NewAssistantTurn(m.Content, calls...)
}

var _ engine.Engine = (*OpenAIEngine)(nil)
