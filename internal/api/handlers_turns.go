package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/tutor"
	"github.com/go-chi/chi/v5"
)

type turnRequest struct {
	Text string `json:"text"`
}

type outcomeResponse struct {
	Status     tutor.Status     `json:"status"`
	Text       string           `json:"text,omitempty"`
	Audio      []byte           `json:"audio,omitempty"`
	AudioMIME  string           `json:"audio_mime,omitempty"`
	AudioURL   string           `json:"audio_url,omitempty"`
	Advisories []tutor.Advisory `json:"advisories"`
	Warning    string           `json:"warning,omitempty"`
	Failure    *tutor.Failure   `json:"failure,omitempty"`
	Turns      int              `json:"turns"`
}

type turnResponse struct {
	Index     int          `json:"index"`
	Role      session.Role `json:"role"`
	Content   string       `json:"content"`
	HasAudio  bool         `json:"has_audio"`
	AudioMIME string       `json:"audio_mime,omitempty"`
	AudioURL  string       `json:"audio_url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// handleTurn runs one question through the tutor. A generation failure is
// reported in the outcome body, not as an HTTP error.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	in, status, err := s.readInput(w, r)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	if !st.TryBeginTurn() {
		jsonError(w, "a turn is already running for this session", http.StatusConflict)
		return
	}
	defer st.EndTurn()

	out := s.deps.Processor.Respond(r.Context(), st, in)

	resp := outcomeResponse{
		Status:     out.Status,
		Text:       out.Text,
		Audio:      out.Audio,
		AudioMIME:  out.AudioMIME,
		Advisories: out.Advisories,
		Warning:    out.Warning,
		Failure:    out.Failure,
		Turns:      out.Turns,
	}
	if resp.Advisories == nil {
		resp.Advisories = []tutor.Advisory{}
	}
	if len(out.Audio) > 0 {
		resp.AudioURL = audioURL(st.ID, out.Turns-1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// readInput accepts either a JSON text question or a multipart form with an
// "audio" file.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (tutor.Input, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioBytes+1024*1024)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("audio exceeds max size (%d bytes)", s.cfg.MaxAudioBytes)
			}
			return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("audio is required: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("failed to read audio")
		}
		if len(data) == 0 {
			return nil, http.StatusBadRequest, errors.New("audio is empty")
		}
		return tutor.AudioInput{Data: data, MIMEType: audioMIME(r.FormValue("mime_type"), header.Header.Get("Content-Type"))}, 0, nil
	}

	var req turnRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("failed to read body")
	}
	if err := sonic.Unmarshal(body, &req); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, http.StatusBadRequest, errors.New("text is required")
	}
	return tutor.TextInput{Text: req.Text}, 0, nil
}

// audioMIME picks the declared type of an uploaded recording, falling back
// to WAV when the client sent nothing useful.
func audioMIME(declared, part string) string {
	for _, v := range []string{declared, part} {
		mt, _, err := mime.ParseMediaType(v)
		if err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	return tutor.DefaultAudioMIME
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	turns := st.All()
	out := make([]turnResponse, 0, len(turns))
	for i, t := range turns {
		tr := turnResponse{
			Index:     i,
			Role:      t.Role,
			Content:   t.Content,
			HasAudio:  t.HasAudio(),
			CreatedAt: t.CreatedAt,
		}
		if t.HasAudio() {
			tr.AudioMIME = t.AudioMIME
			tr.AudioURL = audioURL(st.ID, i)
		}
		out = append(out, tr)
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": out})
}

func (s *Server) handleTurnAudio(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "invalid turn index", http.StatusBadRequest)
		return
	}
	t, ok := st.Turn(idx)
	if !ok || !t.HasAudio() {
		jsonError(w, "no audio for this turn", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", t.AudioMIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(t.Audio)))
	w.Write(t.Audio)
}

func audioURL(sessionID string, index int) string {
	return fmt.Sprintf("/api/sessions/%s/turns/%d/audio", sessionID, index)
}
