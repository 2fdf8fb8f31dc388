package common

import (
	"encoding/json"
	"net/http"
)

// Envelope is the canonical response shape returned by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a successful response using the canonical envelope.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// JSONError renders an error response with a machine-readable reason code.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, Envelope{Success: false, Message: message, Code: code, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
