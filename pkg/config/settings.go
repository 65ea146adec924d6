package config

import (
	"strings"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/security"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderSarvam = "sarvam"
	ProviderNone   = "none"

	BackendWeaviate = "weaviate"
	BackendMemory   = "memory"
)

// Settings is the full runtime configuration of sevasetu.
type Settings struct {
	Keys       Keys              `mapstructure:"keys" yaml:"-"`
	Model      ModelSettings     `mapstructure:"model" yaml:"model"`
	Embeddings EmbeddingSettings `mapstructure:"embeddings" yaml:"embeddings"`
	Retrieval  RetrievalSettings `mapstructure:"retrieval" yaml:"retrieval"`
	Speech     SpeechSettings    `mapstructure:"speech" yaml:"speech"`
	Agent      AgentSettings     `mapstructure:"agent" yaml:"agent"`
	Server     ServerSettings    `mapstructure:"server" yaml:"server"`
	History    HistorySettings   `mapstructure:"history" yaml:"history"`

	// AllowLocalEndpoints lets provider base URLs use http and local addresses.
	AllowLocalEndpoints bool `mapstructure:"allow-local-endpoints" yaml:"allow-local-endpoints,omitempty"`
}

// Keys holds provider credentials. They come from the environment and are never dumped.
type Keys struct {
	Gemini   string `mapstructure:"gemini"`
	OpenAI   string `mapstructure:"openai"`
	Sarvam   string `mapstructure:"sarvam"`
	Weaviate string `mapstructure:"weaviate"`
}

type ModelSettings struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"`
	Name            string        `mapstructure:"name" yaml:"name"`
	APIKey          string        `mapstructure:"-" yaml:"-"`
	BaseURL         string        `mapstructure:"base-url" yaml:"base-url,omitempty"`
	Temperature     float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP            float32       `mapstructure:"top-p" yaml:"top-p,omitempty"`
	MaxOutputTokens int32         `mapstructure:"max-output-tokens" yaml:"max-output-tokens,omitempty"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type EmbeddingSettings struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"-" yaml:"-"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions,omitempty"`
	CacheDir   string `mapstructure:"cache-dir" yaml:"cache-dir,omitempty"`
}

type RetrievalSettings struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Class    string `mapstructure:"class" yaml:"class"`
	Host     string `mapstructure:"host" yaml:"host"`
	Scheme   string `mapstructure:"scheme" yaml:"scheme"`
	APIKey   string `mapstructure:"-" yaml:"-"`
	SeedFile string `mapstructure:"seed-file" yaml:"seed-file,omitempty"`
}

type SpeechSettings struct {
	Provider   string        `mapstructure:"provider" yaml:"provider"`
	APIKey     string        `mapstructure:"-" yaml:"-"`
	BaseURL    string        `mapstructure:"base-url" yaml:"base-url,omitempty"`
	STTModel   string        `mapstructure:"stt-model" yaml:"stt-model"`
	TTSModel   string        `mapstructure:"tts-model" yaml:"tts-model"`
	Speaker    string        `mapstructure:"speaker" yaml:"speaker"`
	SampleRate int           `mapstructure:"sample-rate" yaml:"sample-rate"`
	Pitch      float64       `mapstructure:"pitch" yaml:"pitch"`
	Pace       float64       `mapstructure:"pace" yaml:"pace"`
	Loudness   float64       `mapstructure:"loudness" yaml:"loudness"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AgentSettings struct {
	MaxIterations    int           `mapstructure:"max-iterations" yaml:"max-iterations"`
	ToolTimeout      time.Duration `mapstructure:"tool-timeout" yaml:"tool-timeout"`
	ToolRetries      int           `mapstructure:"tool-retries" yaml:"tool-retries"`
	MaxParallelTools int           `mapstructure:"max-parallel-tools" yaml:"max-parallel-tools"`
	PersonaFile      string        `mapstructure:"persona-file" yaml:"persona-file,omitempty"`
}

type ServerSettings struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	CORSOrigin      string        `mapstructure:"cors-origin" yaml:"cors-origin"`
	RateLimit       float64       `mapstructure:"rate-limit" yaml:"rate-limit"`
	RateBurst       int           `mapstructure:"rate-burst" yaml:"rate-burst"`
	MaxUploadBytes  int64         `mapstructure:"max-upload-bytes" yaml:"max-upload-bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout"`
}

// HistorySettings configures the interaction log. An empty Path disables it.
type HistorySettings struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", ProviderGemini)
	v.SetDefault("model.name", "gemini-2.5-flash")
	v.SetDefault("model.temperature", 0)
	v.SetDefault("model.timeout", 60*time.Second)

	v.SetDefault("embeddings.provider", ProviderGemini)
	v.SetDefault("embeddings.model", "text-embedding-004")

	v.SetDefault("retrieval.backend", BackendWeaviate)
	v.SetDefault("retrieval.class", "Scheme")
	v.SetDefault("retrieval.host", "localhost:8080")
	v.SetDefault("retrieval.scheme", "http")

	v.SetDefault("speech.provider", ProviderSarvam)
	v.SetDefault("speech.base-url", "https://api.sarvam.ai")
	v.SetDefault("speech.stt-model", "saarika:v2.5")
	v.SetDefault("speech.tts-model", "bulbul:v2")
	v.SetDefault("speech.speaker", "anushka")
	v.SetDefault("speech.sample-rate", 8000)
	v.SetDefault("speech.pitch", 0)
	v.SetDefault("speech.pace", 1.0)
	v.SetDefault("speech.loudness", 1.5)
	v.SetDefault("speech.timeout", 30*time.Second)

	v.SetDefault("agent.max-iterations", 6)
	v.SetDefault("agent.tool-timeout", 20*time.Second)
	v.SetDefault("agent.tool-retries", 0)
	v.SetDefault("agent.max-parallel-tools", 1)

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors-origin", "*")
	v.SetDefault("server.rate-limit", 5.0)
	v.SetDefault("server.rate-burst", 10)
	v.SetDefault("server.max-upload-bytes", 10<<20)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
}

// BindEnv wires the SEVASETU_ prefix and the well-known provider key variables.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("sevasetu")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"keys.gemini":   {"SEVASETU_KEYS_GEMINI", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"keys.openai":   {"SEVASETU_KEYS_OPENAI", "OPENAI_API_KEY"},
		"keys.sarvam":   {"SEVASETU_KEYS_SARVAM", "SARVAM_API_KEY"},
		"keys.weaviate": {"SEVASETU_KEYS_WEAVIATE", "WEAVIATE_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return errors.Wrapf(err, "bind %s", key)
		}
	}
	return nil
}

// Load decodes v into Settings and resolves the per-section API keys.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	s.resolveKeys()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) keyFor(provider string) string {
	switch provider {
	case ProviderGemini:
		return s.Keys.Gemini
	case ProviderOpenAI:
		return s.Keys.OpenAI
	case ProviderSarvam:
		return s.Keys.Sarvam
	}
	return ""
}

func (s *Settings) resolveKeys() {
	s.Model.APIKey = s.keyFor(s.Model.Provider)
	s.Embeddings.APIKey = s.keyFor(s.Embeddings.Provider)
	s.Speech.APIKey = s.keyFor(s.Speech.Provider)
	s.Retrieval.APIKey = s.Keys.Weaviate
}

// Validate checks provider names and structural settings. Credentials are checked by RequireKeys.
func (s *Settings) Validate() error {
	switch s.Model.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return errors.Errorf("unsupported model provider %q", s.Model.Provider)
	}
	if s.Model.Name == "" {
		return errors.New("model.name is required")
	}
	switch s.Embeddings.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return errors.Errorf("unsupported embeddings provider %q", s.Embeddings.Provider)
	}
	switch s.Retrieval.Backend {
	case BackendWeaviate:
		if s.Retrieval.Host == "" || s.Retrieval.Class == "" {
			return errors.New("retrieval.host and retrieval.class are required for weaviate")
		}
	case BackendMemory:
	default:
		return errors.Errorf("unsupported retrieval backend %q", s.Retrieval.Backend)
	}
	switch s.Speech.Provider {
	case ProviderSarvam, ProviderOpenAI, ProviderNone:
	default:
		return errors.Errorf("unsupported speech provider %q", s.Speech.Provider)
	}
	if s.Agent.MaxIterations < 1 {
		return errors.New("agent.max-iterations must be at least 1")
	}

	policy := security.EndpointPolicy{AllowLocal: s.AllowLocalEndpoints}
	for key, u := range map[string]string{
		"model.base-url":  s.Model.BaseURL,
		"speech.base-url": s.Speech.BaseURL,
	} {
		if u == "" {
			continue
		}
		if err := security.CheckEndpoint(u, policy); err != nil {
			return errors.Wrap(err, key)
		}
	}
	return nil
}

// RequireKeys reports the first missing credential for the configured providers.
// Commands that never reach a provider (tools, history) skip this check.
func (s *Settings) RequireKeys(speech bool) error {
	if s.Model.APIKey == "" {
		return errors.Errorf("missing API key for model provider %s", s.Model.Provider)
	}
	if s.Embeddings.APIKey == "" {
		return errors.Errorf("missing API key for embeddings provider %s", s.Embeddings.Provider)
	}
	if speech && s.Speech.Provider != ProviderNone && s.Speech.APIKey == "" {
		return errors.Errorf("missing API key for speech provider %s", s.Speech.Provider)
	}
	return nil
}
