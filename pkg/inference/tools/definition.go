package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// RawArgumentsKey holds the undecodable argument payload when a provider
// returns tool arguments that are not a JSON object.
const RawArgumentsKey = "_raw"

// ToolFunc is the handler behind a ToolDefinition. It receives the decoded
// arguments of a single call and returns the observation text.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolDefinition represents a tool that can be called by AI models
type ToolDefinition struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Parameters  *jsonschema.Schema `json:"parameters" yaml:"parameters"`
	Function    ToolFunc           `json:"-" yaml:"-"`
}

// NewTool builds a ToolDefinition from a typed handler. The JSON schema of In
// is what the model sees; arguments are decoded into In before fn runs.
func NewTool[In any](name, description string, fn func(ctx context.Context, in In) (string, error)) (ToolDefinition, error) {
	if strings.TrimSpace(name) == "" {
		return ToolDefinition{}, errors.New("tool name cannot be empty")
	}
	if fn == nil {
		return ToolDefinition{}, errors.Errorf("tool %s has no handler", name)
	}

	var zero In
	reflector := jsonschema.Reflector{
		// Expand definitions inline instead of using $refs
		DoNotReference: true,
	}
	schema := reflector.Reflect(zero)
	schema.Version = ""
	if schema.Type == "" {
		schema.Type = "object"
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Function: func(ctx context.Context, args map[string]any) (string, error) {
			in, err := DecodeArguments[In](args)
			if err != nil {
				return "", err
			}
			return fn(ctx, in)
		},
	}, nil
}

// DecodeArguments converts the loosely typed call arguments into In.
func DecodeArguments[In any](args map[string]any) (In, error) {
	var in In
	if raw, ok := args[RawArgumentsKey]; ok && len(args) == 1 {
		return in, errors.Errorf("malformed arguments: %v", raw)
	}
	b, err := json.Marshal(args)
	if err != nil {
		return in, errors.Wrap(err, "encode arguments")
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return in, errors.Wrap(err, "invalid arguments")
	}
	return in, nil
}

// SchemaJSON returns the parameters schema as a JSON string.
func (td ToolDefinition) SchemaJSON() (string, error) {
	if td.Parameters == nil {
		return `{"type":"object"}`, nil
	}
	b, err := json.Marshal(td.Parameters)
	if err != nil {
		return "", errors.Wrapf(err, "marshal schema of %s", td.Name)
	}
	return string(b), nil
}
