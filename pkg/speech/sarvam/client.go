package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/speech"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL  = "https://api.sarvam.ai"
	DefaultSTTModel = "saarika:v2.5"
	DefaultTTSModel = "bulbul:v2"
	headerAPIKey    = "api-subscription-key"
	maxErrorBody    = 2048
)

// Options mirror the Sarvam voice parameters.
type Options struct {
	BaseURL    string
	STTModel   string
	TTSModel   string
	Speaker    string
	SampleRate int
	Pitch      float64
	Pace       float64
	Loudness   float64
	Timeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		STTModel:   DefaultSTTModel,
		TTSModel:   DefaultTTSModel,
		SampleRate: 8000,
		Pitch:      0,
		Pace:       1.0,
		Loudness:   1.5,
		Timeout:    30 * time.Second,
	}
}

// Client talks to the Sarvam speech-to-text and text-to-speech endpoints.
type Client struct {
	apiKey string
	opts   Options
	http   *http.Client
}

var (
	_ speech.Transcriber = (*Client)(nil)
	_ speech.Synthesizer = (*Client)(nil)
)

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

func NewClient(apiKey string, opts Options, options ...ClientOption) *Client {
	d := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = d.BaseURL
	}
	if opts.STTModel == "" {
		opts.STTModel = d.STTModel
	}
	if opts.TTSModel == "" {
		opts.TTSModel = d.TTSModel
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = d.SampleRate
	}
	if opts.Pace == 0 {
		opts.Pace = d.Pace
	}
	if opts.Loudness == 0 {
		opts.Loudness = d.Loudness
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	c := &Client{apiKey: apiKey, opts: opts, http: &http.Client{}}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

type sttResponse struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Transcribe uploads the audio as a multipart form and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, lang speech.Language) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("no audio")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", errors.Wrap(err, "create form file")
	}
	if _, err := part.Write(audio); err != nil {
		return "", errors.Wrap(err, "write audio")
	}
	fields := map[string]string{
		"model":            c.opts.STTModel,
		"language_code":    lang.Code,
		"with_diarization": "false",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", errors.Wrapf(err, "write field %s", k)
		}
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/speech-to-text", &body)
	if err != nil {
		return "", errors.Wrap(err, "build stt request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(headerAPIKey, c.apiKey)

	var resp sttResponse
	if err := c.do(req, &resp); err != nil {
		return "", errors.Wrap(err, "sarvam stt")
	}
	transcript := strings.TrimSpace(resp.Transcript)
	if transcript == "" {
		return "", speech.ErrEmptyTranscript
	}
	log.Debug().Str("language", lang.Code).Int("audio_bytes", len(audio)).Msg("transcribed audio")
	return transcript, nil
}

type ttsRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Pitch               float64  `json:"pitch"`
	Pace                float64  `json:"pace"`
	Loudness            float64  `json:"loudness"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
	Model               string   `json:"model"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize returns the decoded WAV bytes of the first audio Sarvam produces.
func (c *Client) Synthesize(ctx context.Context, text string, lang speech.Language) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text to synthesize")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	speaker := c.opts.Speaker
	if speaker == "" {
		speaker = lang.Speaker
	}
	payload, err := json.Marshal(ttsRequest{
		Inputs:              []string{text},
		TargetLanguageCode:  lang.Code,
		Speaker:             speaker,
		Pitch:               c.opts.Pitch,
		Pace:                c.opts.Pace,
		Loudness:            c.opts.Loudness,
		SpeechSampleRate:    c.opts.SampleRate,
		EnablePreprocessing: true,
		Model:               c.opts.TTSModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode tts request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/text-to-speech", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build tts request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)

	var resp ttsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, errors.Wrap(err, "sarvam tts")
	}
	if len(resp.Audios) == 0 || resp.Audios[0] == "" {
		return nil, errors.New("sarvam tts returned no audio")
	}
	audio, err := base64.StdEncoding.DecodeString(resp.Audios[0])
	if err != nil {
		return nil, errors.Wrap(err, "decode tts audio")
	}
	return audio, nil
}

// APIError is a non-2xx answer from Sarvam.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "status " + http.StatusText(e.StatusCode) + ": " + e.Body
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
