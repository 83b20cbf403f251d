package weather

import (
	"errors"
	"fmt"
)

// ErrStationNotFound is returned when the upstream API does not know a station.
var ErrStationNotFound = errors.New("station not found")

// ValueError reports a violated domain invariant.
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string {
	return e.Message
}

func valueErrorf(format string, args ...any) error {
	return &ValueError{Message: fmt.Sprintf(format, args...)}
}

// APIError reports an upstream transport or protocol failure.
type APIError struct {
	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "upstream api error: " + e.Message
	}
	return fmt.Sprintf("upstream api error (status %d): %s", e.StatusCode, e.Message)
}

// Kind is the error taxonomy exposed at the HTTP edge.
type Kind string

const (
	KindValue    Kind = "ValueError"
	KindAPI      Kind = "APIError"
	KindNotFound Kind = "NotFound"
	KindInternal Kind = "InternalError"
)

// KindOf classifies err into one of the edge error kinds.
func KindOf(err error) Kind {
	var valueErr *ValueError
	var apiErr *APIError

	switch {
	case errors.Is(err, ErrStationNotFound):
		return KindNotFound
	case errors.As(err, &valueErr):
		return KindValue
	case errors.As(err, &apiErr):
		return KindAPI
	default:
		return KindInternal
	}
}
