package server

import (
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Version string
	}{
		Version: s.version,
	}
	if err := s.renderer.WriteHTML(w, "index", data); err != nil {
		s.logger.Error("failed to execute index template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
