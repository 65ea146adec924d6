package turns

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrettyPrinter renders a Conversation in a configurable human-friendly way.
type PrettyPrinter struct {
	IncludeIndex      bool
	IncludeToolDetail bool
	IndentSpaces      int
	MaxTextLines      int // 0 => unlimited
}

// PrintOption configures a PrettyPrinter.
type PrintOption func(*PrettyPrinter)

// WithIndex toggles inclusion of turn positions.
func WithIndex(include bool) PrintOption { return func(p *PrettyPrinter) { p.IncludeIndex = include } }

// WithToolDetail toggles inclusion of tool args/result details.
func WithToolDetail(include bool) PrintOption {
	return func(p *PrettyPrinter) { p.IncludeToolDetail = include }
}

// WithIndent sets the number of spaces used for indentation.
func WithIndent(spaces int) PrintOption { return func(p *PrettyPrinter) { p.IndentSpaces = spaces } }

// WithMaxTextLines limits how many lines of text to print for message bodies (0 = unlimited).
func WithMaxTextLines(n int) PrintOption { return func(p *PrettyPrinter) { p.MaxTextLines = n } }

func NewPrettyPrinter(opts ...PrintOption) *PrettyPrinter {
	p := &PrettyPrinter{
		IncludeToolDetail: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FprintConversation prints the conversation using an ephemeral PrettyPrinter configured via options.
func FprintConversation(w io.Writer, c *Conversation, opts ...PrintOption) {
	NewPrettyPrinter(opts...).FprintConversation(w, c)
}

// FprintConversation emits a human-readable rendering of a Conversation.
func (p *PrettyPrinter) FprintConversation(w io.Writer, c *Conversation) {
	if c == nil {
		return
	}
	pad := strings.Repeat(" ", p.IndentSpaces)
	for i, t := range c.Turns {
		prefix := pad
		if p.IncludeIndex {
			prefix = fmt.Sprintf("%s[%02d] ", pad, i)
		}

		switch t.Role {
		case RoleSystem, RoleUser:
			p.fprintText(w, prefix+string(t.Role)+":", t.Text)
		case RoleAssistant:
			if t.HasText() {
				p.fprintText(w, prefix+"assistant:", t.Text)
			}
			for _, call := range t.ToolCalls {
				if p.IncludeToolDetail {
					fmt.Fprintf(w, "%stool_call: name=%s id=%s\n", prefix, call.Name, call.ID)
					fmt.Fprintf(w, "%s  args: %s\n", pad, toOneLineJSON(call.Arguments))
				} else {
					fmt.Fprintf(w, "%stool_call: %s\n", prefix, call.Name)
				}
			}
		case RoleToolResult:
			fmt.Fprintf(w, "%stool_result: id=%s\n", prefix, t.ToolCallID)
			if p.IncludeToolDetail {
				fmt.Fprintf(w, "%s  result: %s\n", pad, toOneLine(t.Text))
			}
		}
	}
}

func (p *PrettyPrinter) fprintText(w io.Writer, head string, text string) {
	if p.MaxTextLines <= 0 {
		fmt.Fprintf(w, "%s %s\n", head, text)
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= p.MaxTextLines {
		fmt.Fprintf(w, "%s %s\n", head, text)
		return
	}
	fmt.Fprintf(w, "%s %s\n", head, strings.Join(lines[:p.MaxTextLines], "\n"))
}

func toOneLineJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return toOneLine(string(b))
}

func toOneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}
