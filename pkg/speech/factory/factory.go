package factory

import (
	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/speech"
	"github.com/go-go-golems/sevasetu/pkg/speech/sarvam"
	"github.com/go-go-golems/sevasetu/pkg/speech/whisper"
	"github.com/pkg/errors"
)

// Speech bundles both directions of the configured provider. Both fields are
// nil when speech is disabled.
type Speech struct {
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
}

// NewSpeechFromSettings builds the speech clients for the configured provider.
// The sarvam model and voice settings do not apply to the openai provider,
// which uses whisper-1 and tts-1.
func NewSpeechFromSettings(s config.SpeechSettings) (Speech, error) {
	switch s.Provider {
	case config.ProviderNone:
		return Speech{}, nil
	case config.ProviderSarvam:
		if s.APIKey == "" {
			return Speech{}, errors.New("sarvam API key is required")
		}
		c := sarvam.NewClient(s.APIKey, sarvam.Options{
			BaseURL:    s.BaseURL,
			STTModel:   s.STTModel,
			TTSModel:   s.TTSModel,
			Speaker:    s.Speaker,
			SampleRate: s.SampleRate,
			Pitch:      s.Pitch,
			Pace:       s.Pace,
			Loudness:   s.Loudness,
			Timeout:    s.Timeout,
		})
		return Speech{Transcriber: c, Synthesizer: c}, nil
	case config.ProviderOpenAI:
		if s.APIKey == "" {
			return Speech{}, errors.New("openai API key is required")
		}
		c := whisper.NewClient(s.APIKey, "")
		return Speech{Transcriber: c, Synthesizer: c}, nil
	default:
		return Speech{}, errors.Errorf("unsupported speech provider %q", s.Provider)
	}
}
