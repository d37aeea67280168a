package util

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"flame/service/app"
)

func LogAndError(w http.ResponseWriter, logger *slog.Logger, message string, code int, err error) {
	if err != nil {
		logger.Error(message, "error", err)
	} else {
		logger.Error(message)
	}
	http.Error(w, message, code)
}

func JSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// StatusForError maps app errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrIconTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, app.ErrInvalidApp), errors.Is(err, app.ErrUnsupportedIcon):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
