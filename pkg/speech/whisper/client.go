package whisper

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/go-go-golems/sevasetu/pkg/speech"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
)

// Client uses the OpenAI audio endpoints for both directions.
type Client struct {
	client   *openai.Client
	sttModel string
	ttsModel openai.SpeechModel
	voice    openai.SpeechVoice
}

var (
	_ speech.Transcriber = (*Client)(nil)
	_ speech.Synthesizer = (*Client)(nil)
)

type Option func(*Client)

func WithTranscriptionModel(model string) Option {
	return func(c *Client) { c.sttModel = model }
}

func WithSpeechModel(model string) Option {
	return func(c *Client) { c.ttsModel = openai.SpeechModel(model) }
}

func WithVoice(voice string) Option {
	return func(c *Client) { c.voice = openai.SpeechVoice(voice) }
}

func NewClient(apiKey string, baseURL string, opts ...Option) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c := &Client{
		client:   openai.NewClientWithConfig(config),
		sttModel: openai.Whisper1,
		ttsModel: openai.TTSModel1,
		voice:    openai.VoiceAlloy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, lang speech.Language) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("no audio")
	}
	req := openai.AudioRequest{
		Model:    c.sttModel,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	}
	if base, conf := lang.Tag.Base(); conf != language.No {
		req.Language = base.String()
	}
	resp, err := c.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "whisper transcription")
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", speech.ErrEmptyTranscript
	}
	log.Debug().Str("language", req.Language).Int("audio_bytes", len(audio)).Msg("transcribed audio")
	return text, nil
}

func (c *Client) Synthesize(ctx context.Context, text string, _ speech.Language) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text to synthesize")
	}
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          c.ttsModel,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai speech")
	}
	defer func() { _ = resp.Close() }()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, errors.Wrap(err, "read speech audio")
	}
	return audio, nil
}
