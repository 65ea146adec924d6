package turns

import (
	"strings"

	"github.com/google/uuid"
	clone "github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// Role identifies who produced a Turn.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// ErrInvalidTurn is returned when appending a Turn would break the conversation ordering rules.
var ErrInvalidTurn = errors.New("invalid turn")

// ToolCall is a model request to invoke a named tool.
type ToolCall struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Arguments map[string]any `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// Turn is one entry of the conversation log.
//
// Assistant turns may carry ToolCalls instead of (or alongside) Text.
// Tool result turns carry the ToolCallID of the request they answer.
type Turn struct {
	Role       Role       `yaml:"role" json:"role"`
	Text       string     `yaml:"text,omitempty" json:"text,omitempty"`
	ToolCalls  []ToolCall `yaml:"tool_calls,omitempty" json:"tool_calls,omitempty"`
	ToolCallID string     `yaml:"tool_call_id,omitempty" json:"tool_call_id,omitempty"`
}

func NewSystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Text: text}
}

func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// NewAssistantTurn returns an assistant turn. Tool calls without an ID get a fresh one.
func NewAssistantTurn(text string, calls ...ToolCall) Turn {
	t := Turn{Role: RoleAssistant, Text: text}
	for _, c := range calls {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Arguments == nil {
			c.Arguments = map[string]any{}
		}
		t.ToolCalls = append(t.ToolCalls, c)
	}
	return t
}

func NewToolResultTurn(callID string, content string) Turn {
	return Turn{Role: RoleToolResult, Text: content, ToolCallID: callID}
}

// HasText reports whether the turn carries non-blank text.
func (t Turn) HasText() bool {
	return strings.TrimSpace(t.Text) != ""
}

func (t Turn) HasToolCalls() bool {
	return len(t.ToolCalls) > 0
}

// Conversation is the ordered, append-only log of Turns owned by a single request.
type Conversation struct {
	ID    string `yaml:"id,omitempty" json:"id,omitempty"`
	Turns []Turn `yaml:"turns" json:"turns"`
}

// NewConversation seeds a conversation with an optional system turn followed by the user turn.
func NewConversation(systemPrompt string, userText string) *Conversation {
	c := &Conversation{ID: uuid.NewString()}
	if strings.TrimSpace(systemPrompt) != "" {
		c.Turns = append(c.Turns, NewSystemTurn(systemPrompt))
	}
	c.Turns = append(c.Turns, NewUserTurn(userText))
	return c
}

func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Turns)
}

// Append validates all turns first and appends them only if every one is acceptable,
// so a rejected batch leaves the conversation untouched.
func (c *Conversation) Append(ts ...Turn) error {
	if c == nil {
		return errors.Wrap(ErrInvalidTurn, "conversation is nil")
	}
	pending := map[string]bool{}
	for _, call := range c.PendingToolCalls() {
		pending[call.ID] = true
	}
	n := len(c.Turns)
	for i, t := range ts {
		if err := validateTurn(t, n+i, pending); err != nil {
			return err
		}
	}
	c.Turns = append(c.Turns, ts...)
	return nil
}

func validateTurn(t Turn, position int, pending map[string]bool) error {
	switch t.Role {
	case RoleSystem:
		if position != 0 {
			return errors.Wrap(ErrInvalidTurn, "system turn is only allowed first")
		}
	case RoleUser:
	case RoleAssistant:
		seen := map[string]bool{}
		for _, call := range t.ToolCalls {
			if call.ID == "" || call.Name == "" {
				return errors.Wrap(ErrInvalidTurn, "tool call needs an id and a name")
			}
			if seen[call.ID] || pending[call.ID] {
				return errors.Wrapf(ErrInvalidTurn, "duplicate tool call id %s", call.ID)
			}
			seen[call.ID] = true
		}
		for id := range seen {
			pending[id] = true
		}
	case RoleToolResult:
		if !pending[t.ToolCallID] {
			return errors.Wrapf(ErrInvalidTurn, "tool result for unknown or answered call %q", t.ToolCallID)
		}
		delete(pending, t.ToolCallID)
	default:
		return errors.Wrapf(ErrInvalidTurn, "unknown role %q", t.Role)
	}
	return nil
}

// PendingToolCalls returns tool calls emitted by assistant turns that have no tool result yet,
// in emission order. Results are matched to emissions in order, so an id reused after it was
// answered is pending again, the same way Append treats it.
func (c *Conversation) PendingToolCalls() []ToolCall {
	if c == nil {
		return nil
	}
	var out []ToolCall
	for _, t := range c.Turns {
		switch t.Role {
		case RoleAssistant:
			out = append(out, t.ToolCalls...)
		case RoleToolResult:
			for i, call := range out {
				if call.ID == t.ToolCallID {
					out = append(out[:i:i], out[i+1:]...)
					break
				}
			}
		}
	}
	return out
}

// Last returns the most recent turn.
func (c *Conversation) Last() (Turn, bool) {
	if c.Len() == 0 {
		return Turn{}, false
	}
	return c.Turns[len(c.Turns)-1], true
}

// LastAssistantText returns the text of the most recent assistant turn that has any.
func (c *Conversation) LastAssistantText() string {
	if c == nil {
		return ""
	}
	for i := len(c.Turns) - 1; i >= 0; i-- {
		t := c.Turns[i]
		if t.Role == RoleAssistant && t.HasText() {
			return strings.TrimSpace(t.Text)
		}
	}
	return ""
}

// ToolNameForCall resolves the tool name of the most recent emission of a call id.
func (c *Conversation) ToolNameForCall(id string) string {
	if c == nil {
		return ""
	}
	for i := len(c.Turns) - 1; i >= 0; i-- {
		for _, call := range c.Turns[i].ToolCalls {
			if call.ID == id {
				return call.Name
			}
		}
	}
	return ""
}

// Clone returns a deep copy, safe to hand to observers while the loop keeps appending.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	return clone.Clone(c).(*Conversation)
}
