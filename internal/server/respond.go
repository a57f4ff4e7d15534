package server

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes a response body. Encoding failures after the header is
// written are unrecoverable and deliberately ignored.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError returns a uniform JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
