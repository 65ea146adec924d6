package toolloop

import (
	"github.com/pkg/errors"
)

var (
	// ErrModelUnavailable is matched by every planner failure caused by the model call.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmptyFinalAnswer is returned when the model stops without any usable text.
	ErrEmptyFinalAnswer = errors.New("empty final answer")
	// ErrMaxIterations is returned when the iteration cap is hit and no assistant text exists.
	ErrMaxIterations = errors.New("max iterations reached")
)

// ModelUnavailableError carries the engine failure that aborted a planner step.
type ModelUnavailableError struct {
	Iteration int
	Cause     error
}

func (e *ModelUnavailableError) Error() string {
	return "model unavailable: " + e.Cause.Error()
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}
