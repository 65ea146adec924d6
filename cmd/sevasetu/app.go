package main

import (
	"context"
	"io"

	"github.com/go-go-golems/sevasetu/pkg/assistant"
	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/embeddings"
	"github.com/go-go-golems/sevasetu/pkg/history"
	"github.com/go-go-golems/sevasetu/pkg/inference/engine/factory"
	"github.com/go-go-golems/sevasetu/pkg/inference/toolloop"
	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/go-go-golems/sevasetu/pkg/retrieval/memory"
	"github.com/go-go-golems/sevasetu/pkg/retrieval/weaviate"
	"github.com/go-go-golems/sevasetu/pkg/schemes"
	speechfactory "github.com/go-go-golems/sevasetu/pkg/speech/factory"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const queryEmbeddingCacheSize = 1024

// app holds the collaborators built from the settings. Close releases them.
type app struct {
	settings  *config.Settings
	store     retrieval.Store
	registry  *tools.Registry
	assistant *assistant.Assistant
	history   *history.Store

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// newStore builds the configured scheme index. The memory backend is seeded
// from the seed file when one is configured.
func newStore(ctx context.Context, s *config.Settings, provider embeddings.Provider) (retrieval.Store, error) {
	switch s.Retrieval.Backend {
	case config.BackendWeaviate:
		return weaviate.NewStore(weaviate.Config{
			Host:   s.Retrieval.Host,
			Scheme: s.Retrieval.Scheme,
			APIKey: s.Retrieval.APIKey,
			Class:  s.Retrieval.Class,
		}, provider)
	case config.BackendMemory:
		st := memory.NewStore(provider)
		if s.Retrieval.SeedFile != "" {
			list, err := schemes.LoadSchemes(s.Retrieval.SeedFile)
			if err != nil {
				return nil, err
			}
			n, err := schemes.Ingest(ctx, st, list, schemes.DefaultBatchSize)
			if err != nil {
				return nil, err
			}
			log.Info().Int("schemes", n).Str("file", s.Retrieval.SeedFile).Msg("seeded in-memory index")
		}
		return st, nil
	default:
		return nil, errors.Errorf("unsupported retrieval backend %q", s.Retrieval.Backend)
	}
}

func closerOf(v interface{}) func() error {
	if c, ok := v.(io.Closer); ok {
		return c.Close
	}
	return func() error { return nil }
}

// newIndex builds only the embeddings provider and the store, for ingestion.
func newIndex(ctx context.Context, s *config.Settings) (retrieval.Store, func() error, error) {
	provider, err := embeddings.NewProviderFromSettings(ctx, s.Embeddings)
	if err != nil {
		return nil, nil, err
	}
	store, err := newStore(ctx, s, provider)
	if err != nil {
		_ = closerOf(provider)()
		return nil, nil, err
	}
	return store, closerOf(provider), nil
}

type appOptions struct {
	speech  bool
	history bool
	extra   []assistant.Option
}

func newApp(ctx context.Context, s *config.Settings, opts appOptions) (*app, error) {
	if err := s.RequireKeys(opts.speech); err != nil {
		return nil, err
	}
	a := &app{settings: s}

	provider, err := embeddings.NewProviderFromSettings(ctx, s.Embeddings)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closerOf(provider))

	a.store, err = newStore(ctx, s, embeddings.NewCachedProvider(provider, queryEmbeddingCacheSize))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry, err = schemes.NewRegistry(a.store)
	if err != nil {
		a.Close()
		return nil, err
	}

	eng, closeEngine, err := factory.NewEngineFromSettings(ctx, s.Model)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeEngine)

	retry := tools.DefaultToolConfig().RetryConfig
	retry.MaxRetries = s.Agent.ToolRetries
	toolCfg := tools.DefaultToolConfig().
		WithExecutionTimeout(s.Agent.ToolTimeout).
		WithMaxParallelTools(s.Agent.MaxParallelTools).
		WithRetryConfig(retry)

	loop := toolloop.New(
		toolloop.WithEngine(eng),
		toolloop.WithExecutor(tools.NewExecutor(a.registry, toolCfg)),
		toolloop.WithLoopConfig(toolloop.DefaultLoopConfig().
			WithMaxIterations(s.Agent.MaxIterations).
			WithModelTimeout(s.Model.Timeout)),
	)

	persona, err := assistant.LoadPersona(s.Agent.PersonaFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	assistantOpts := []assistant.Option{
		assistant.WithPersona(persona),
		assistant.WithToolNames(a.registry.Names()...),
	}

	if opts.speech {
		sp, err := speechfactory.NewSpeechFromSettings(s.Speech)
		if err != nil {
			a.Close()
			return nil, err
		}
		if sp.Transcriber != nil {
			assistantOpts = append(assistantOpts,
				assistant.WithTranscriber(sp.Transcriber),
				assistant.WithSynthesizer(sp.Synthesizer))
		}
	}

	if opts.history && s.History.Path != "" {
		a.history, err = history.Open(ctx, s.History.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, a.history.Close)
		assistantOpts = append(assistantOpts, assistant.WithRecorder(a.history))
	}

	assistantOpts = append(assistantOpts, opts.extra...)
	a.assistant, err = assistant.New(loop, assistantOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
