package serde

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/sevasetu/pkg/turns"
)

func TestYAMLRoundTripKeepsToolCorrelation(t *testing.T) {
	c := turns.NewConversation("persona", "Meri age 25 hai")
	require.NoError(t, c.Append(
		turns.NewAssistantTurn("", turns.ToolCall{ID: "call-1", Name: "check_eligibility", Arguments: map[string]any{"user_details": "age 25"}}),
		turns.NewToolResultTurn("call-1", "- Scheme: PMKVY"),
		turns.NewAssistantTurn("PMKVY aapke liye hai."),
	))

	b, err := ToYAML(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), "tool_call_id: call-1")

	out, err := FromYAML(b)
	require.NoError(t, err)
	assert.Equal(t, c.ID, out.ID)
	require.Len(t, out.Turns, 5)
	assert.Equal(t, "check_eligibility", out.Turns[2].ToolCalls[0].Name)
	assert.Equal(t, "age 25", out.Turns[2].ToolCalls[0].Arguments["user_details"])
	assert.Equal(t, "call-1", out.Turns[3].ToolCallID)
}

func TestFromYAMLRejectsOrphanToolResult(t *testing.T) {
	in := []byte(`
turns:
  - role: user
    text: hello
  - role: tool_result
    tool_call_id: nope
    text: stray
`)
	_, err := FromYAML(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, turns.ErrInvalidTurn)
}

func TestSaveAndLoadFile(t *testing.T) {
	c := turns.NewConversation("", "hello")
	path := filepath.Join(t.TempDir(), "conv.yaml")
	require.NoError(t, SaveConversationYAML(path, c))

	out, err := LoadConversationYAML(path)
	require.NoError(t, err)
	require.Len(t, out.Turns, 1)
	assert.Equal(t, turns.RoleUser, out.Turns[0].Role)
}
