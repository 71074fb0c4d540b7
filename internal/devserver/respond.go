package devserver

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse mirrors the backend's error body.
type ErrorResponse struct {
	Timestamp   string            `json:"timestamp"`
	Status      int               `json:"status"`
	Error       string            `json:"error"`
	Message     string            `json:"message"`
	Path        string            `json:"path"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeFieldErrors(w, r, status, msg, nil)
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, status int, msg string, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Status:      status,
		Error:       http.StatusText(status),
		Message:     msg,
		Path:        r.URL.Path,
		FieldErrors: fields,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
