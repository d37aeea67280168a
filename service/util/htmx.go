package util

import (
	"encoding/json"
	"net/http"
)

// AddTrigger merges an event into the HX-Trigger response header so several
// events can fire from one response.
func AddTrigger(w http.ResponseWriter, event string, detail any) {
	events := map[string]any{}
	if existing := w.Header().Get("HX-Trigger"); existing != "" {
		_ = json.Unmarshal([]byte(existing), &events) //nolint:errcheck
	}
	events[event] = detail

	if data, err := json.Marshal(events); err == nil {
		w.Header().Set("HX-Trigger", string(data))
	}
}

func SetToast(w http.ResponseWriter, message, toastType string) {
	AddTrigger(w, "showToast", map[string]string{
		"message": message,
		"type":    toastType,
	})
}

func CloseModal(w http.ResponseWriter) {
	AddTrigger(w, "closeModal", true)
}

func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
