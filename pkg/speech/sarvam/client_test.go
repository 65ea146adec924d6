package sarvam

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/speech"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marathi(t *testing.T) speech.Language {
	t.Helper()
	l, ok := speech.LookupLanguage("marathi")
	require.True(t, ok)
	return l
}

func TestTranscribeSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech-to-text", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-subscription-key"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "saarika:v2.5", r.FormValue("model"))
		assert.Equal(t, "mr-IN", r.FormValue("language_code"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "audio.wav", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "RIFF-fake", string(b))

		_ = json.NewEncoder(w).Encode(map[string]string{"transcript": " mala yojana havi aahe "})
	}))
	defer srv.Close()

	c := NewClient("secret", Options{BaseURL: srv.URL})
	text, err := c.Transcribe(context.Background(), []byte("RIFF-fake"), marathi(t))
	require.NoError(t, err)
	assert.Equal(t, "mala yojana havi aahe", text)
}

func TestTranscribeFailures(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"transcript": ""}`))
	}))
	defer srv.Close()
	c := NewClient("secret", Options{BaseURL: srv.URL})

	_, err := c.Transcribe(context.Background(), []byte("x"), marathi(t))
	assert.ErrorIs(t, err, speech.ErrEmptyTranscript)

	status = http.StatusUnauthorized
	_, err = c.Transcribe(context.Background(), []byte("x"), marathi(t))
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = c.Transcribe(context.Background(), nil, marathi(t))
	require.Error(t, err)
}

func TestSynthesizeDecodesAudio(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"audios": {base64.StdEncoding.EncodeToString([]byte("WAVDATA"))},
		})
	}))
	defer srv.Close()

	c := NewClient("secret", Options{BaseURL: srv.URL + "/"})
	audio, err := c.Synthesize(context.Background(), "Namaskar", marathi(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("WAVDATA"), audio)

	assert.Equal(t, []interface{}{"Namaskar"}, got["inputs"])
	assert.Equal(t, "mr-IN", got["target_language_code"])
	assert.Equal(t, "anushka", got["speaker"])
	assert.Equal(t, "bulbul:v2", got["model"])
	assert.Equal(t, float64(8000), got["speech_sample_rate"])
	assert.Equal(t, 1.5, got["loudness"])
	assert.Equal(t, true, got["enable_preprocessing"])
}

func TestSynthesizeFailures(t *testing.T) {
	body := `{"audios": []}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := NewClient("secret", Options{BaseURL: srv.URL})

	_, err := c.Synthesize(context.Background(), "hello", marathi(t))
	require.Error(t, err)

	body = `{"audios": ["%%%not-base64"]}`
	_, err = c.Synthesize(context.Background(), "hello", marathi(t))
	require.Error(t, err)

	_, err = c.Synthesize(context.Background(), "  ", marathi(t))
	require.Error(t, err)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient("secret", Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Transcribe(context.Background(), []byte("x"), marathi(t))
	require.Error(t, err)
}
