// Package api provides the standardized JSON response helpers every REST
// handler uses, so every endpoint returns the same envelope shapes
// regardless of which handler is writing.
package api

import (
	"encoding/json"
	"net/http"
)

// Success writes a JSON response with the given status code. A nil data
// payload sends the status code with no body, for 204-style responses.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes a {"error": message} JSON body with the given status code.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
