// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/pwscontext/pwscontext/internal/api/middleware"
	"github.com/pwscontext/pwscontext/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Status writes a bare status code with an empty body. A Content-Type set
// earlier in the chain is removed since there is no content.
func Status(w http.ResponseWriter, r *http.Request, status int) {
	setRequestID(w, r)
	w.Header().Del("Content-Type")
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(status)
}

// ErrorKind writes {"error": kind} with the given status code.
func ErrorKind(w http.ResponseWriter, r *http.Request, status int, kind string) {
	JSON(w, r, status, models.ErrorBody{Error: kind})
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}
