package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemeQuery struct {
	SchemeName string `json:"scheme_name" jsonschema:"required,description=Name of the scheme"`
	Limit      int    `json:"limit,omitempty"`
}

func TestNewToolGeneratesInlineSchema(t *testing.T) {
	def, err := NewTool("lookup", "looks things up", func(_ context.Context, in schemeQuery) (string, error) {
		return in.SchemeName, nil
	})
	require.NoError(t, err)

	require.NotNil(t, def.Parameters)
	assert.Equal(t, "object", def.Parameters.Type)
	assert.Empty(t, def.Parameters.Version)
	assert.Contains(t, def.Parameters.Required, "scheme_name")

	prop, ok := def.Parameters.Properties.Get("scheme_name")
	require.True(t, ok)
	assert.Equal(t, "string", prop.Type)
	assert.Equal(t, "Name of the scheme", prop.Description)

	js, err := def.SchemaJSON()
	require.NoError(t, err)
	assert.NotContains(t, js, "$ref")
}

func TestNewToolDecodesArguments(t *testing.T) {
	def, err := NewTool("lookup", "", func(_ context.Context, in schemeQuery) (string, error) {
		return in.SchemeName, nil
	})
	require.NoError(t, err)

	out, err := def.Function(context.Background(), map[string]any{"scheme_name": "PM Kisan", "limit": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "PM Kisan", out)

	_, err = def.Function(context.Background(), map[string]any{"scheme_name": 42})
	require.Error(t, err)
}

func TestNewToolRejectsMissingPieces(t *testing.T) {
	_, err := NewTool[schemeQuery]("", "", func(context.Context, schemeQuery) (string, error) { return "", nil })
	require.Error(t, err)
	_, err = NewTool[schemeQuery]("x", "", nil)
	require.Error(t, err)
}

func TestRegistryValidation(t *testing.T) {
	def, err := NewTool("a", "", func(context.Context, schemeQuery) (string, error) { return "", nil })
	require.NoError(t, err)

	_, err = NewRegistry(def, def)
	require.Error(t, err)

	_, err = NewRegistry(ToolDefinition{Name: "nohandler"})
	require.Error(t, err)

	b := def
	b.Name = "b"
	reg, err := NewRegistry(b, def)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
	_, ok := reg.Lookup("a")
	assert.True(t, ok)
	_, ok = reg.Lookup("c")
	assert.False(t, ok)
}
