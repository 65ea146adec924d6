package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/inference/engine"
	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// GeminiEngine implements the Engine interface for Google's Gemini API.
// The client is created once and shared by all requests.
type GeminiEngine struct {
	client   *genai.Client
	settings config.ModelSettings
}

// NewGeminiEngine creates a new Gemini inference engine with the given settings.
func NewGeminiEngine(ctx context.Context, s config.ModelSettings) (*GeminiEngine, error) {
	if s.APIKey == "" {
		return nil, errors.New("missing gemini API key")
	}
	opts := []option.ClientOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(s.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return &GeminiEngine{client: client, settings: s}, nil
}

func (e *GeminiEngine) Close() error {
	return e.client.Close()
}

func (e *GeminiEngine) model(system string, defs []tools.ToolDefinition) *genai.GenerativeModel {
	model := e.client.GenerativeModel(e.settings.Name)
	model.SetTemperature(e.settings.Temperature)
	if e.settings.TopP > 0 {
		model.SetTopP(e.settings.TopP)
	}
	if e.settings.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(e.settings.MaxOutputTokens)
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if decls := functionDeclarations(defs); len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return model
}

// RunInference replays the conversation as chat history and sends its last content.
func (e *GeminiEngine) RunInference(ctx context.Context, conv *turns.Conversation, defs []tools.ToolDefinition) (turns.Turn, error) {
	system, contents := buildContents(conv)
	if len(contents) == 0 {
		return turns.Turn{}, errors.New("nothing to send to gemini")
	}

	cs := e.model(system, defs).StartChat()
	cs.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	start := time.Now()
	log.Debug().
		Str("model", e.settings.Name).
		Int("history", len(cs.History)).
		Int("tools", len(defs)).
		Msg("Gemini RunInference started")

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return turns.Turn{}, errors.Wrap(err, "gemini generate content")
	}

	out, finishReason := parseResponse(resp)
	ev := log.Debug().
		Dur("duration", time.Since(start)).
		Str("finish_reason", finishReason).
		Int("text_len", len(out.Text)).
		Int("tool_call_count", len(out.ToolCalls))
	if resp.UsageMetadata != nil {
		ev = ev.Int32("input_tokens", resp.UsageMetadata.PromptTokenCount).
			Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount)
	}
	ev.Msg("Gemini RunInference completed")
	return out, nil
}

// buildContents maps turns to Gemini contents. The system turn becomes the
// system instruction and consecutive turns with the same Gemini role are merged.
func buildContents(conv *turns.Conversation) (string, []*genai.Content) {
	var system string
	var contents []*genai.Content

	push := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, t := range conv.Turns {
		switch t.Role {
		case turns.RoleSystem:
			system = t.Text
		case turns.RoleUser:
			push("user", genai.Text(t.Text))
		case turns.RoleAssistant:
			var parts []genai.Part
			if t.HasText() {
				parts = append(parts, genai.Text(t.Text))
			}
			for _, c := range t.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: c.Name, Args: c.Arguments})
			}
			push("model", parts...)
		case turns.RoleToolResult:
			name := conv.ToolNameForCall(t.ToolCallID)
			if name == "" {
				name = "result"
			}
			push("user", genai.FunctionResponse{
				Name:     name,
				Response: map[string]any{"result": t.Text},
			})
		}
	}
	return system, contents
}

// parseResponse normalizes the first candidate that carries content.
func parseResponse(resp *genai.GenerateContentResponse) (turns.Turn, string) {
	if resp == nil {
		return turns.NewAssistantTurn(""), ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var texts []string
		var calls []turns.ToolCall
		for _, p := range cand.Content.Parts {
			switch v := p.(type) {
			case genai.Text:
				if s := strings.TrimSpace(string(v)); s != "" {
					texts = append(texts, s)
				}
			case genai.FunctionCall:
				calls = append(calls, turns.ToolCall{Name: v.Name, Arguments: v.Args})
			}
		}
		return turns.NewAssistantTurn(strings.Join(texts, " "), calls...), cand.FinishReason.String()
	}
	finish := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		finish = resp.Candidates[0].FinishReason.String()
	}
	return turns.NewAssistantTurn(""), finish
}

func functionDeclarations(defs []tools.ToolDefinition) []*genai.FunctionDeclaration {
	var decls []*genai.FunctionDeclaration
	for _, td := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        td.Name,
			Description: td.Description,
			Parameters:  convertJSONSchemaToGenAI(td.Parameters),
		})
	}
	return decls
}

// convertJSONSchemaToGenAI converts an invopop jsonschema.Schema to a Gemini Schema.
func convertJSONSchemaToGenAI(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "string":
		gs.Type = genai.TypeString
		for _, v := range s.Enum {
			if str, ok := v.(string); ok {
				gs.Enum = append(gs.Enum, str)
			}
		}
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	case "array":
		gs.Type = genai.TypeArray
		gs.Items = convertJSONSchemaToGenAI(s.Items)
		if gs.Items == nil {
			gs.Items = &genai.Schema{Type: genai.TypeString}
		}
	default:
		// default to object when unspecified
		gs.Type = genai.TypeObject
		if s.Properties != nil {
			props := map[string]*genai.Schema{}
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				props[pair.Key] = convertJSONSchemaToGenAI(pair.Value)
			}
			if len(props) > 0 {
				gs.Properties = props
			}
		}
		gs.Required = append(gs.Required, s.Required...)
	}
	return gs
}

var _ engine.Engine = (*GeminiEngine)(nil)
