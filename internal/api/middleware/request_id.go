// Package middleware provides the HTTP middleware chain of the provider API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	headerRequestID  = "X-Request-Id"
	headerCorrelator = "Fiware-Correlator"

	// maxRequestIDLength bounds caller supplied ids before they reach logs.
	maxRequestIDLength = 128
)

type requestIDKey struct{}

// RequestID assigns every request an id and stores it in the context.
//
// The id is taken from X-Request-Id, then from the Fiware-Correlator header a
// context broker sends with forwarded queries, and is generated otherwise. It
// is returned in X-Request-Id. A received correlator is echoed unchanged so
// the broker can match the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlator := r.Header.Get(headerCorrelator)

		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = correlator
		}
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = "req_" + uuid.NewString()
		}

		w.Header().Set(headerRequestID, requestID)
		if correlator != "" {
			w.Header().Set(headerCorrelator, correlator)
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
