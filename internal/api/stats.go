package api

import (
	"net/http"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Batches       int            `json:"batches"`
	Items         int            `json:"items"`
	Skipped       int            `json:"skipped"`
	ByStatus      map[string]int `json:"by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	SuccessRate   float64        `json:"success_rate"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}

	stats, err := s.store.GetItemStats(r.Context())
	if err != nil {
		s.logger.Error("get item stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	resp := statsResponse{
		Batches:       stats.Batches,
		Items:         stats.Items,
		Skipped:       stats.Skipped,
		ByStatus:      stats.CountByStatus,
		AvgDurationMS: stats.AvgDurationMS,
	}
	if stats.Items > 0 {
		resp.SuccessRate = float64(stats.CountByStatus[model.StatusSucceeded]) / float64(stats.Items)
	}
	s.writeJSON(w, http.StatusOK, resp)
}
