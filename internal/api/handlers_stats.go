package api

import (
	"net/http"

	"github.com/dgallion1/coursevoice/internal/stats"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var gen, synth stats.Snapshot
	if s.deps.GenerationStats != nil {
		gen = s.deps.GenerationStats.Snapshot()
	}
	if s.deps.SynthesisStats != nil {
		synth = s.deps.SynthesisStats.Snapshot()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"generation": map[string]any{
			"model": s.deps.GenerationModel,
			"stats": gen,
		},
		"synthesis": map[string]any{
			"model": s.cfg.ElevenLabsModel,
			"stats": synth,
		},
		"sessions": s.deps.Sessions.Count(),
	})
}
