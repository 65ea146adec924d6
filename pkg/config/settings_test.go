package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	s, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, s.Model.Provider)
	assert.Equal(t, "gemini-2.5-flash", s.Model.Name)
	assert.Equal(t, 60*time.Second, s.Model.Timeout)
	assert.Equal(t, "g-key", s.Model.APIKey)
	assert.Equal(t, "g-key", s.Embeddings.APIKey)
	assert.Equal(t, 6, s.Agent.MaxIterations)
	assert.Equal(t, 20*time.Second, s.Agent.ToolTimeout)
	assert.Equal(t, "bulbul:v2", s.Speech.TTSModel)
	assert.Equal(t, 8000, s.Speech.SampleRate)
	assert.InDelta(t, 1.5, s.Speech.Loudness, 1e-9)
	assert.Equal(t, ":8000", s.Server.Addr)
	assert.Equal(t, int64(10<<20), s.Server.MaxUploadBytes)
}

func TestEnvOverridesAndKeyResolution(t *testing.T) {
	t.Setenv("SEVASETU_MODEL_PROVIDER", "openai")
	t.Setenv("SEVASETU_MODEL_NAME", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("SARVAM_API_KEY", "s-key")
	t.Setenv("SEVASETU_AGENT_MAX_ITERATIONS", "3")

	s, err := Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "o-key", s.Model.APIKey)
	assert.Equal(t, "s-key", s.Speech.APIKey)
	assert.Equal(t, 3, s.Agent.MaxIterations)
}

func TestConfigFile(t *testing.T) {
	v := newViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
retrieval:
  backend: memory
  seed-file: schemes.json
agent:
  tool-timeout: 5s
`)))
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, s.Retrieval.Backend)
	assert.Equal(t, "schemes.json", s.Retrieval.SeedFile)
	assert.Equal(t, 5*time.Second, s.Agent.ToolTimeout)
}

func TestValidate(t *testing.T) {
	v := newViper(t)
	v.Set("model.provider", "claude")
	_, err := Load(v)
	require.Error(t, err)

	v = newViper(t)
	v.Set("retrieval.backend", "chroma")
	_, err = Load(v)
	require.Error(t, err)

	v = newViper(t)
	v.Set("agent.max-iterations", 0)
	_, err = Load(v)
	require.Error(t, err)
}

func TestValidateEndpoints(t *testing.T) {
	v := newViper(t)
	v.Set("speech.base-url", "http://127.0.0.1:9000")
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech.base-url")

	v.Set("allow-local-endpoints", true)
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", s.Speech.BaseURL)
}

func TestRequireKeys(t *testing.T) {
	s := &Settings{
		Model:      ModelSettings{Provider: ProviderGemini, APIKey: "x"},
		Embeddings: EmbeddingSettings{Provider: ProviderGemini, APIKey: "x"},
		Speech:     SpeechSettings{Provider: ProviderSarvam},
	}
	require.NoError(t, s.RequireKeys(false))
	require.Error(t, s.RequireKeys(true))
	s.Speech.Provider = ProviderNone
	require.NoError(t, s.RequireKeys(true))
}
