package factory

import (
	"context"
	"strings"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/inference/engine"
	"github.com/go-go-golems/sevasetu/pkg/steps/ai/gemini"
	"github.com/go-go-golems/sevasetu/pkg/steps/ai/openai"
	"github.com/pkg/errors"
)

// SupportedProviders lists the provider names NewEngineFromSettings accepts.
func SupportedProviders() []string {
	return []string{config.ProviderGemini, config.ProviderOpenAI}
}

// NewEngineFromSettings creates the planner engine for the configured provider.
// The returned closer releases the underlying client.
func NewEngineFromSettings(ctx context.Context, s config.ModelSettings) (engine.Engine, func() error, error) {
	if s.APIKey == "" {
		return nil, nil, errors.Errorf("missing API key for provider %s", s.Provider)
	}

	switch strings.ToLower(s.Provider) {
	case config.ProviderGemini:
		e, err := gemini.NewGeminiEngine(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	case config.ProviderOpenAI:
		e, err := openai.NewOpenAIEngine(s)
		if err != nil {
			return nil, nil, err
		}
		return e, func() error { return nil }, nil
	default:
		return nil, nil, errors.Errorf("unsupported provider: %s (supported: %s)",
			s.Provider, strings.Join(SupportedProviders(), ", "))
	}
}
