package server

import (
	"net/http"
	"time"

	"flame/service/metrics"
	"flame/service/util"
)

type healthResponse struct {
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Apps    int    `json:"apps"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.apps.Count(r.Context())
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to count apps", http.StatusServiceUnavailable, err)
		return
	}
	metrics.AppsCurrent.Set(float64(count))

	util.WriteJSON(w, s.logger, http.StatusOK, healthResponse{
		Version: s.version,
		Uptime:  util.FormatUptime(time.Since(s.startTime)),
		Apps:    count,
	})
}
