package api

import (
	"net/http"

	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Sessions.Create()
	s.log.Info("session started", "session_id", st.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": st.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Sessions.Delete(chi.URLParam(r, "sessionID")) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookupSession resolves the {sessionID} URL parameter, writing a 404 when
// the session does not exist or has expired.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	st, ok := s.deps.Sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return st, true
}
