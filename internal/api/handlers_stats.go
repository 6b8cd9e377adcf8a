package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleAnalyzeStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "analyze stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.service.QueueDepth(),
		"stats":       s.stats.Snapshot(),
	})
}
