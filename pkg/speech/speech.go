package speech

import (
	"context"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// ErrEmptyTranscript is returned by transcribers when the audio produced no text.
var ErrEmptyTranscript = errors.New("empty transcript")

// Transcriber turns recorded audio into text in the given language.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, lang Language) (string, error)
}

// Synthesizer renders text as audio (WAV bytes) in the given language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang Language) ([]byte, error)
}

// Language is one entry of the supported language table. Code is the provider
// language code, Tag the matching BCP-47 tag.
type Language struct {
	Key     string       `json:"key" yaml:"key"`
	Code    string       `json:"code" yaml:"code"`
	Tag     language.Tag `json:"-" yaml:"-"`
	Speaker string       `json:"speaker" yaml:"speaker"`
}

const (
	DefaultLanguageKey = "hindi"
	AutoLanguageKey    = "auto"
	DefaultSpeaker     = "anushka"
)

var languages = map[string]Language{
	"hindi":   {Key: "hindi", Code: "hi-IN", Tag: language.MustParse("hi-IN"), Speaker: DefaultSpeaker},
	"marathi": {Key: "marathi", Code: "mr-IN", Tag: language.MustParse("mr-IN"), Speaker: DefaultSpeaker},
	"telugu":  {Key: "telugu", Code: "te-IN", Tag: language.MustParse("te-IN"), Speaker: DefaultSpeaker},
	// Sarvam uses od-IN, the BCP-47 code for Odia is or.
	"odiya":   {Key: "odiya", Code: "od-IN", Tag: language.MustParse("or-IN"), Speaker: DefaultSpeaker},
	"bengali": {Key: "bengali", Code: "bn-IN", Tag: language.MustParse("bn-IN"), Speaker: DefaultSpeaker},
	"tamil":   {Key: "tamil", Code: "ta-IN", Tag: language.MustParse("ta-IN"), Speaker: DefaultSpeaker},
}

// LookupLanguage returns the table entry for key, falling back to hindi for
// unknown keys. The bool reports whether key was known.
func LookupLanguage(key string) (Language, bool) {
	l, ok := languages[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return languages[DefaultLanguageKey], false
	}
	return l, true
}

// Languages lists the supported language keys in alphabetical order.
func Languages() []Language {
	ret := make([]Language, 0, len(languages))
	for _, l := range languages {
		ret = append(ret, l)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Key < ret[j].Key })
	return ret
}

// AutoLanguage is passed to transcribers when the caller asked for detection.
// Code "unknown" makes Sarvam detect the language itself.
func AutoLanguage() Language {
	return Language{Key: AutoLanguageKey, Code: "unknown", Tag: language.Und, Speaker: DefaultSpeaker}
}

// IsAuto reports whether key asks for language detection.
func IsAuto(key string) bool {
	return strings.EqualFold(strings.TrimSpace(key), AutoLanguageKey)
}

// ForTag maps a BCP-47 tag onto the table using the x/text matcher.
func ForTag(tag language.Tag) (Language, bool) {
	supported := Languages()
	tags := make([]language.Tag, len(supported))
	for i, l := range supported {
		tags[i] = l.Tag
	}
	_, idx, conf := language.NewMatcher(tags).Match(tag)
	if conf < language.High {
		return languages[DefaultLanguageKey], false
	}
	return supported[idx], true
}

// DetectLanguage guesses the language of text, falling back to hindi when the
// detected language is not in the table.
func DetectLanguage(text string) Language {
	if strings.TrimSpace(text) == "" {
		return languages[DefaultLanguageKey]
	}
	iso := whatlanggo.DetectLang(text).Iso6391()
	tag, err := language.Parse(iso)
	if err != nil {
		return languages[DefaultLanguageKey]
	}
	l, _ := ForTag(tag)
	return l
}
