package toolloop

import "github.com/go-go-golems/sevasetu/pkg/turns"

// Decision is the outcome of Route.
type Decision int

const (
	// Stop ends the loop; the turn's text is the answer.
	Stop Decision = iota
	// Continue hands the turn's tool calls to the executor.
	Continue
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// Route decides what follows an assistant turn. Tool calls take precedence
// over any text carried alongside them.
func Route(t turns.Turn) Decision {
	if t.HasToolCalls() {
		return Continue
	}
	return Stop
}
