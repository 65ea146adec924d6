package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestLookupLanguage(t *testing.T) {
	l, ok := LookupLanguage("Marathi ")
	assert.True(t, ok)
	assert.Equal(t, "mr-IN", l.Code)
	assert.Equal(t, DefaultSpeaker, l.Speaker)

	odiya, ok := LookupLanguage("odiya")
	assert.True(t, ok)
	assert.Equal(t, "od-IN", odiya.Code)
	assert.Equal(t, "or-IN", odiya.Tag.String())

	l, ok = LookupLanguage("klingon")
	assert.False(t, ok)
	assert.Equal(t, "hindi", l.Key)
	assert.Equal(t, "hi-IN", l.Code)
}

func TestLanguagesSorted(t *testing.T) {
	keys := []string{}
	for _, l := range Languages() {
		keys = append(keys, l.Key)
	}
	assert.Equal(t, []string{"bengali", "hindi", "marathi", "odiya", "tamil", "telugu"}, keys)
}

func TestForTag(t *testing.T) {
	l, ok := ForTag(language.MustParse("ta"))
	assert.True(t, ok)
	assert.Equal(t, "tamil", l.Key)

	l, ok = ForTag(language.MustParse("fr"))
	assert.False(t, ok)
	assert.Equal(t, "hindi", l.Key)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "tamil", DetectLanguage("எனக்கு விவசாயிகளுக்கான திட்டங்கள் பற்றி சொல்லுங்கள்").Key)
	assert.Equal(t, "bengali", DetectLanguage("আমি একজন কৃষক, আমার জন্য কোন প্রকল্প আছে?").Key)
	assert.Equal(t, "hindi", DetectLanguage("").Key)
	assert.Equal(t, "hindi", DetectLanguage("Bonjour, je cherche un emploi dans la ville").Key)
	assert.True(t, IsAuto(" AUTO"))
	assert.False(t, IsAuto("hindi"))
}

func TestAutoLanguage(t *testing.T) {
	l := AutoLanguage()
	assert.Equal(t, "unknown", l.Code)
	assert.Equal(t, language.Und, l.Tag)
}
