package factory

import (
	"testing"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/speech/sarvam"
	"github.com/go-go-golems/sevasetu/pkg/speech/whisper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpeechFromSettings(t *testing.T) {
	s, err := NewSpeechFromSettings(config.SpeechSettings{Provider: config.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, s.Transcriber)
	assert.Nil(t, s.Synthesizer)

	s, err = NewSpeechFromSettings(config.SpeechSettings{Provider: config.ProviderSarvam, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &sarvam.Client{}, s.Transcriber)

	s, err = NewSpeechFromSettings(config.SpeechSettings{Provider: config.ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &whisper.Client{}, s.Synthesizer)

	_, err = NewSpeechFromSettings(config.SpeechSettings{Provider: config.ProviderSarvam})
	require.Error(t, err)
	_, err = NewSpeechFromSettings(config.SpeechSettings{Provider: "espeak", APIKey: "k"})
	require.Error(t, err)
}
