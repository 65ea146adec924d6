package serde

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/sevasetu/pkg/turns"
)

// NormalizeConversation applies serde defaults without changing turn order.
func NormalizeConversation(c *turns.Conversation) {
	if c == nil {
		return
	}
	for i := range c.Turns {
		t := &c.Turns[i]
		for j := range t.ToolCalls {
			if t.ToolCalls[j].Arguments == nil {
				t.ToolCalls[j].Arguments = map[string]any{}
			}
		}
	}
}

// ToYAML marshals a Conversation to YAML.
func ToYAML(c *turns.Conversation) ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	snapshot := c.Clone()
	NormalizeConversation(snapshot)
	return yaml.Marshal(snapshot)
}

// FromYAML unmarshals a Conversation from YAML and replays it through Append so the
// ordering rules hold for loaded fixtures too.
func FromYAML(b []byte) (*turns.Conversation, error) {
	var raw turns.Conversation
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decode conversation yaml")
	}
	NormalizeConversation(&raw)
	out := &turns.Conversation{ID: raw.ID}
	if err := out.Append(raw.Turns...); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveConversationYAML writes a Conversation to a YAML file.
func SaveConversationYAML(path string, c *turns.Conversation) error {
	b, err := ToYAML(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadConversationYAML reads a Conversation from a YAML file.
func LoadConversationYAML(path string) (*turns.Conversation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(b)
}
