package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/events"
	"github.com/go-go-golems/sevasetu/pkg/history"
	"github.com/go-go-golems/sevasetu/pkg/inference/toolloop"
	"github.com/go-go-golems/sevasetu/pkg/speech"
	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fixed user visible answers.
const (
	TechnicalErrorText = "Technical error. Please try again."
	NotUnderstoodText  = "Sorry, I could not understand. Please speak again."
	NoAnswerText       = "Sorry, I could not find an answer to that right now."
)

var (
	ErrTranscriptionFailed = errors.New("failed to transcribe")
	ErrEmptyInput          = errors.New("empty input")
	ErrNoTranscriber       = errors.New("speech input is not configured")
)

// Recorder persists handled requests.
type Recorder interface {
	Save(ctx context.Context, r history.Record) error
}

// Reply is what the user gets back for one request.
type Reply struct {
	RequestID  string          `json:"request_id" yaml:"request_id"`
	Language   string          `json:"language" yaml:"language"`
	UserText   string          `json:"user_text" yaml:"user_text"`
	AgentText  string          `json:"agent_text" yaml:"agent_text"`
	Audio      []byte          `json:"-" yaml:"-"`
	Iterations int             `json:"iterations" yaml:"iterations"`
	Outcome    history.Outcome `json:"outcome" yaml:"outcome"`

	Conversation *turns.Conversation `json:"-" yaml:"-"`
}

// Assistant turns one user utterance into one spoken answer.
type Assistant struct {
	loop        *toolloop.Loop
	persona     *Persona
	toolNames   []string
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	recorder    Recorder
	sinks       []events.EventSink
}

type Option func(*Assistant)

func WithPersona(p *Persona) Option {
	return func(a *Assistant) { a.persona = p }
}

// WithToolNames lists the tools in the system prompt.
func WithToolNames(names ...string) Option {
	return func(a *Assistant) { a.toolNames = names }
}

func WithTranscriber(t speech.Transcriber) Option {
	return func(a *Assistant) { a.transcriber = t }
}

func WithSynthesizer(s speech.Synthesizer) Option {
	return func(a *Assistant) { a.synthesizer = s }
}

func WithRecorder(r Recorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

func WithEventSinks(sinks ...events.EventSink) Option {
	return func(a *Assistant) { a.sinks = append(a.sinks, sinks...) }
}

func New(loop *toolloop.Loop, opts ...Option) (*Assistant, error) {
	if loop == nil {
		return nil, errors.New("assistant needs a tool loop")
	}
	a := &Assistant{loop: loop, persona: DefaultPersona()}
	for _, opt := range opts {
		opt(a)
	}
	if a.persona == nil {
		return nil, errors.New("persona is nil")
	}
	return a, nil
}

func requestID(ctx context.Context) string {
	if id := events.ConversationIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func resolveLanguage(langKey string, text string) speech.Language {
	if speech.IsAuto(langKey) {
		return speech.DetectLanguage(text)
	}
	l, ok := speech.LookupLanguage(langKey)
	if !ok && langKey != "" {
		log.Debug().Str("language", langKey).Msg("unknown language, using hindi")
	}
	return l
}

// HandleText answers a typed question. Only a blank question is an error; every
// other failure is mapped onto one of the fixed answers.
func (a *Assistant) HandleText(ctx context.Context, text string, langKey string) (Reply, error) {
	reqID := requestID(ctx)
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{RequestID: reqID}, ErrEmptyInput
	}
	return a.answer(ctx, reqID, text, resolveLanguage(langKey, text)), nil
}

// HandleAudio transcribes audio and answers it. A failed or empty
// transcription returns ErrTranscriptionFailed.
func (a *Assistant) HandleAudio(ctx context.Context, audio []byte, langKey string) (Reply, error) {
	reqID := requestID(ctx)
	if a.transcriber == nil {
		return Reply{RequestID: reqID}, ErrNoTranscriber
	}
	logger := log.With().Str("request_id", reqID).Logger()

	sttLang := speech.AutoLanguage()
	if !speech.IsAuto(langKey) {
		sttLang = resolveLanguage(langKey, "")
	}
	start := time.Now()
	text, err := a.transcriber.Transcribe(ctx, audio, sttLang)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err == nil {
			err = speech.ErrEmptyTranscript
		}
		logger.Warn().Err(err).Str("language", sttLang.Code).Msg("transcription failed")
		a.record(ctx, logger, Reply{RequestID: reqID, Language: sttLang.Key, Outcome: history.OutcomeTranscription})
		return Reply{RequestID: reqID, Language: sttLang.Key}, errors.Wrap(ErrTranscriptionFailed, err.Error())
	}
	logger.Info().Dur("duration", time.Since(start)).Str("user_text", text).Msg("transcribed")

	lang := sttLang
	if speech.IsAuto(langKey) {
		lang = speech.DetectLanguage(text)
	}
	return a.answer(ctx, reqID, text, lang), nil
}

func (a *Assistant) answer(ctx context.Context, reqID string, text string, lang speech.Language) Reply {
	logger := log.With().Str("request_id", reqID).Str("language", lang.Key).Logger()
	ctx = logger.WithContext(ctx)
	ctx = events.WithConversationID(ctx, reqID)
	ctx = events.WithEventSinks(ctx, a.sinks...)

	reply := Reply{RequestID: reqID, Language: lang.Key, UserText: text}
	start := time.Now()

	system, err := a.persona.Render(PersonaData{Language: lang.Key, Tools: a.toolNames})
	if err != nil {
		logger.Error().Err(err).Msg("persona rendering failed")
		reply.AgentText = TechnicalErrorText
		reply.Outcome = history.OutcomeModelUnavailable
		a.finish(ctx, logger, &reply, lang)
		return reply
	}

	conv := turns.NewConversation(system, text)
	conv.ID = reqID
	res, err := a.loop.Run(ctx, conv)
	if res != nil {
		reply.Iterations = res.Iterations
		reply.Conversation = res.Conversation
	}
	reply.AgentText, reply.Outcome = outcomeOf(res, err)
	if err != nil {
		logger.Warn().Err(err).Str("outcome", string(reply.Outcome)).Msg("agent did not produce an answer")
	}
	logger.Info().
		Int("iterations", reply.Iterations).
		Dur("duration", time.Since(start)).
		Str("outcome", string(reply.Outcome)).
		Msg("agent replied")

	a.finish(ctx, logger, &reply, lang)
	return reply
}

// outcomeOf maps the loop result onto the text the user hears.
func outcomeOf(res *toolloop.Result, err error) (string, history.Outcome) {
	switch {
	case err == nil:
		answer := strings.TrimSpace(res.Answer)
		if answer == "" {
			return NotUnderstoodText, history.OutcomeEmptyAnswer
		}
		if res.Exhausted {
			return answer, history.OutcomeExhausted
		}
		return answer, history.OutcomeAnswered
	case errors.Is(err, toolloop.ErrModelUnavailable):
		return TechnicalErrorText, history.OutcomeModelUnavailable
	case errors.Is(err, toolloop.ErrEmptyFinalAnswer):
		return NotUnderstoodText, history.OutcomeEmptyAnswer
	case errors.Is(err, toolloop.ErrMaxIterations):
		return NoAnswerText, history.OutcomeExhausted
	default:
		return TechnicalErrorText, history.OutcomeModelUnavailable
	}
}

// finish synthesizes audio and records the interaction. Neither can fail the request.
func (a *Assistant) finish(ctx context.Context, logger zerolog.Logger, reply *Reply, lang speech.Language) {
	if a.synthesizer != nil {
		audio, err := a.synthesizer.Synthesize(ctx, reply.AgentText, lang)
		if err != nil {
			logger.Warn().Err(err).Msg("speech synthesis failed, replying without audio")
		} else {
			reply.Audio = audio
		}
	}
	a.record(ctx, logger, *reply)
}

func (a *Assistant) record(ctx context.Context, logger zerolog.Logger, r Reply) {
	if a.recorder == nil {
		return
	}
	err := a.recorder.Save(ctx, history.Record{
		RequestID:  r.RequestID,
		Language:   r.Language,
		UserText:   r.UserText,
		AgentText:  r.AgentText,
		Iterations: r.Iterations,
		Outcome:    r.Outcome,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("could not save interaction")
	}
}
