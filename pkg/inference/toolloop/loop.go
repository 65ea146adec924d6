package toolloop

import (
	"context"

	"github.com/go-go-golems/sevasetu/pkg/events"
	"github.com/go-go-golems/sevasetu/pkg/inference/engine"
	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Loop alternates planner and executor steps until the model answers.
// A Loop holds no per-request state and can serve concurrent runs.
type Loop struct {
	eng      engine.Engine
	executor *tools.Executor
	cfg      LoopConfig

	snapshotHook SnapshotHook
}

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{cfg: DefaultLoopConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func WithEngine(eng engine.Engine) Option {
	return func(l *Loop) { l.eng = eng }
}

// WithExecutor sets the executor; its registry is what the model gets to see.
func WithExecutor(exec *tools.Executor) Option {
	return func(l *Loop) { l.executor = exec }
}

func WithLoopConfig(cfg LoopConfig) Option {
	return func(l *Loop) { l.cfg = cfg }
}

func WithLoopSnapshotHook(h SnapshotHook) Option {
	return func(l *Loop) { l.snapshotHook = h }
}

// Result is the outcome of a completed run.
type Result struct {
	Conversation *turns.Conversation
	Answer       string
	Iterations   int
	// Exhausted is set when the iteration cap forced the stop.
	Exhausted bool
}

func (l *Loop) snapshot(ctx context.Context, conv *turns.Conversation, phase string) {
	h := l.snapshotHook
	if h == nil {
		var ok bool
		if h, ok = SnapshotHookFromContext(ctx); !ok {
			return
		}
	}
	h(ctx, conv.Clone(), phase)
}

// Run drives conv to a final answer. conv is appended to in place and is also
// returned in the Result, even on error.
//
// Errors: a planner failure matches ErrModelUnavailable; a stop without text
// is ErrEmptyFinalAnswer; hitting the cap with no assistant text at all is
// ErrMaxIterations.
func (l *Loop) Run(ctx context.Context, conv *turns.Conversation) (*Result, error) {
	if l == nil || l.eng == nil {
		return nil, errors.New("tool loop engine is nil")
	}
	if l.executor == nil {
		return nil, errors.New("tool loop executor is nil")
	}
	if conv.Len() == 0 {
		return nil, errors.New("conversation is empty")
	}

	ctx = events.WithConversationID(ctx, conv.ID)
	logger := log.With().Str("conversation_id", conv.ID).Logger()
	defs := l.executor.Registry().Definitions()
	res := &Result{Conversation: conv}

	maxIterations := l.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultLoopConfig().MaxIterations
	}

	// a conversation handed over mid-flight may still owe tool results
	if pending := conv.PendingToolCalls(); len(pending) > 0 {
		if err := l.act(ctx, conv, pending); err != nil {
			return res, err
		}
	}

	for i := 1; i <= maxIterations; i++ {
		res.Iterations = i
		start := events.New(events.EventTypePlannerStart, conv.ID)
		start.Iteration = i
		events.PublishEventToContext(ctx, start)
		logger.Debug().Int("iteration", i).Msg("toolloop: planner step")

		turn, err := Plan(ctx, l.eng, conv, defs, l.cfg.ModelTimeout)
		if err != nil {
			var mu *ModelUnavailableError
			if errors.As(err, &mu) {
				mu.Iteration = i
			}
			l.publishError(ctx, conv.ID, i, err)
			logger.Error().Err(err).Int("iteration", i).Msg("toolloop: planner failed")
			return res, err
		}
		if err := conv.Append(turn); err != nil {
			return res, errors.Wrap(err, "append assistant turn")
		}
		l.snapshot(ctx, conv, PhasePostPlan)

		planned := events.New(events.EventTypePlannerResult, conv.ID)
		planned.Iteration = i
		planned.Text = turn.Text
		planned.ToolCallCount = len(turn.ToolCalls)
		events.PublishEventToContext(ctx, planned)

		if Route(turn) == Stop {
			if !turn.HasText() {
				l.publishError(ctx, conv.ID, i, ErrEmptyFinalAnswer)
				return res, ErrEmptyFinalAnswer
			}
			res.Answer = turn.Text
			l.publishFinal(ctx, conv.ID, i, res.Answer)
			return res, nil
		}

		logger.Debug().Int("iteration", i).Int("tool_calls", len(turn.ToolCalls)).Msg("toolloop: executing tools")
		if err := l.act(ctx, conv, turn.ToolCalls); err != nil {
			return res, err
		}
	}

	logger.Warn().Int("max_iterations", maxIterations).Msg("toolloop: maximum iterations reached")
	res.Exhausted = true
	res.Answer = conv.LastAssistantText()
	if res.Answer == "" {
		l.publishError(ctx, conv.ID, res.Iterations, ErrMaxIterations)
		return res, errors.Wrapf(ErrMaxIterations, "after %d iterations", maxIterations)
	}
	l.publishFinal(ctx, conv.ID, res.Iterations, res.Answer)
	return res, nil
}

func (l *Loop) act(ctx context.Context, conv *turns.Conversation, calls []turns.ToolCall) error {
	results := l.executor.Execute(ctx, calls)
	if err := conv.Append(results...); err != nil {
		return errors.Wrap(err, "append tool results")
	}
	l.snapshot(ctx, conv, PhasePostTools)
	return nil
}

func (l *Loop) publishFinal(ctx context.Context, convID string, iteration int, answer string) {
	e := events.New(events.EventTypeFinal, convID)
	e.Iteration = iteration
	e.Text = answer
	events.PublishEventToContext(ctx, e)
}

func (l *Loop) publishError(ctx context.Context, convID string, iteration int, err error) {
	e := events.New(events.EventTypeError, convID)
	e.Iteration = iteration
	e.Error = err.Error()
	events.PublishEventToContext(ctx, e)
}
