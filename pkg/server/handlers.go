package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-go-golems/sevasetu/pkg/assistant"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type chatResponse struct {
	UserText  string  `json:"user_text"`
	AgentText string  `json:"agent_text"`
	Audio     *string `json:"audio"`
}

type askRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type askResponse struct {
	RequestID  string  `json:"request_id"`
	Language   string  `json:"language"`
	AgentText  string  `json:"agent_text"`
	Iterations int     `json:"iterations"`
	Audio      *string `json:"audio,omitempty"`
}

func encodeAudio(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := base64.StdEncoding.EncodeToString(b)
	return &s
}

// handleChat takes a multipart upload (file, language) and answers with text and speech.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with file and language")
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	lang := r.FormValue("language")
	log.Info().Str("language", lang).Int("audio_bytes", len(audio)).Msg("received audio")

	reply, err := s.assistant.HandleAudio(r.Context(), audio, lang)
	switch {
	case errors.Is(err, assistant.ErrTranscriptionFailed):
		writeError(w, http.StatusInternalServerError, "Failed to transcribe")
		return
	case errors.Is(err, assistant.ErrNoTranscriber):
		writeError(w, http.StatusServiceUnavailable, "speech input is not configured")
		return
	case err != nil:
		log.Error().Err(err).Msg("chat failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		UserText:  reply.UserText,
		AgentText: reply.AgentText,
		Audio:     encodeAudio(reply.Audio),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req askRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.assistant.HandleText(r.Context(), req.Text, req.Language)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "text is required")
		return
	case err != nil:
		log.Error().Err(err).Msg("ask failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		RequestID:  reply.RequestID,
		Language:   reply.Language,
		AgentText:  reply.AgentText,
		Iterations: reply.Iterations,
		Audio:      encodeAudio(reply.Audio),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("could not write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
