package embeddings

import (
	"context"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// NewProviderFromSettings creates the embeddings provider for s, wrapped in a
// disk cache when s.CacheDir is set.
func NewProviderFromSettings(ctx context.Context, s config.EmbeddingSettings) (Provider, error) {
	if s.APIKey == "" {
		return nil, errors.Errorf("missing API key for embeddings provider %s", s.Provider)
	}

	var p Provider
	switch s.Provider {
	case config.ProviderGemini:
		gp, err := NewGeminiProvider(ctx, s.APIKey, s.Model, s.Dimensions)
		if err != nil {
			return nil, err
		}
		p = gp
	case config.ProviderOpenAI:
		p = NewOpenAIProvider(s.APIKey, "", openai.EmbeddingModel(s.Model), s.Dimensions)
	default:
		return nil, errors.Errorf("unsupported embeddings provider %q", s.Provider)
	}

	if s.CacheDir == "" {
		return p, nil
	}
	return NewDiskCacheProvider(p, WithDirectory(s.CacheDir))
}
