package toolloop

import (
	"context"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/turns"
)

// LoopConfig bounds a single run of the loop.
type LoopConfig struct {
	MaxIterations int
	ModelTimeout  time.Duration
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations: 6,
		ModelTimeout:  60 * time.Second,
	}
}

func (c LoopConfig) WithMaxIterations(n int) LoopConfig {
	c.MaxIterations = n
	return c
}

func (c LoopConfig) WithModelTimeout(d time.Duration) LoopConfig {
	c.ModelTimeout = d
	return c
}

// Snapshot phases passed to a SnapshotHook.
const (
	PhasePostPlan  = "post_plan"
	PhasePostTools = "post_tools"
)

// SnapshotHook receives a deep copy of the conversation after each phase.
type SnapshotHook func(ctx context.Context, conv *turns.Conversation, phase string)

type snapshotHookKey struct{}

// WithSnapshotHook attaches a snapshot hook to the context.
func WithSnapshotHook(ctx context.Context, hook SnapshotHook) context.Context {
	if hook == nil {
		return ctx
	}
	return context.WithValue(ctx, snapshotHookKey{}, hook)
}

// SnapshotHookFromContext returns the snapshot hook attached to the context, if any.
func SnapshotHookFromContext(ctx context.Context) (SnapshotHook, bool) {
	h, ok := ctx.Value(snapshotHookKey{}).(SnapshotHook)
	return h, ok && h != nil
}
