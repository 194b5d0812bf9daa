package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/coursevoice/internal/ingest"
)

type documentResponse struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Chars    int    `json:"chars"`
	Error    string `json:"error,omitempty"`
}

// handleUploadCorpus replaces the session corpus with the text of the
// uploaded files. Files that cannot be parsed are reported and skipped.
func (s *Server) handleUploadCorpus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	// Limit total request size; extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f := ingest.File{Name: sanitizeFilename(fh.Filename)}
		if src, err := fh.Open(); err == nil {
			f.Data, err = io.ReadAll(src)
			src.Close()
			if err != nil {
				f.Data = nil
			}
		}
		files = append(files, f)
	}

	res := s.deps.Ingestor.Extract(r.Context(), files)
	if err := r.Context().Err(); err != nil {
		// A partial batch must not replace the corpus.
		s.log.Warn("corpus upload cancelled",
			"session_id", st.ID,
			"documents", len(files),
			"error", err,
		)
		jsonError(w, "upload cancelled before all files were read; previous course notes kept", http.StatusServiceUnavailable)
		return
	}
	st.SetCorpus(res.Corpus)

	docs := make([]documentResponse, 0, len(res.Documents))
	for _, d := range res.Documents {
		dr := documentResponse{Filename: d.Filename, Pages: d.Pages, Chars: d.Chars}
		if d.Err != nil {
			dr.Error = d.Err.Error()
		}
		docs = append(docs, dr)
	}

	corpusChars := utf8.RuneCountInString(res.Corpus)
	promptChars := min(corpusChars, s.cfg.MaxCorpusChars)
	s.log.Info("corpus replaced",
		"session_id", st.ID,
		"documents", len(files),
		"failed", len(res.Failed()),
		"corpus_chars", corpusChars,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"corpus_chars": corpusChars,
		"prompt_chars": promptChars,
		"truncated":    corpusChars > promptChars,
		"failed":       len(res.Failed()),
		"documents":    docs,
	})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
