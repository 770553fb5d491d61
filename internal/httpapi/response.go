package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ironsheep/gcp-sim/internal/imaging"
	"github.com/ironsheep/gcp-sim/internal/publish"
)

// writeJSONError writes {"error": msg} with the given status code.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Printf("failed to encode json error response: %v", err)
	}
}

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func writeJSONOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeError maps err to a status code:
//   - ErrConfiguration, ErrInvalidImage: 400
//   - ErrNotPublished: 404
//   - ErrStopTimeout: 503
//   - anything else: 500
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, imaging.ErrConfiguration), errors.Is(err, imaging.ErrInvalidImage):
		status = http.StatusBadRequest
	case errors.Is(err, publish.ErrNotPublished):
		status = http.StatusNotFound
	case errors.Is(err, publish.ErrStopTimeout):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("HTTP request failed: %v", err)
	}
	writeJSONError(w, status, err.Error())
}
