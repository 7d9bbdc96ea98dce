package ordersync

import (
	"errors"
	"fmt"
)

// ErrEndpointUnavailable marks optional feeds the caller may not have
// access to (missing route, permission denied). Callers degrade instead
// of failing the whole fetch.
var ErrEndpointUnavailable = errors.New("endpoint unavailable")

// ErrDebounced means the previous fetch for the shift completed inside
// the debounce window and no known-good snapshot exists to serve
// instead. Forcing the refresh bypasses it.
var ErrDebounced = errors.New("refresh debounced")

// ValidationError is returned before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// RequestRejectedError carries the server's reason for declining a
// cancellation request. No local state is written when this is returned.
type RequestRejectedError struct {
	Message string
}

func (e *RequestRejectedError) Error() string {
	return "cancellation request rejected: " + e.Message
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("pos api error %d: %s", e.Status, e.Body)
}

// endpointUnavailable reports whether err means the endpoint itself is
// missing or forbidden, as opposed to a transient backend failure.
func endpointUnavailable(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		switch ae.Status {
		case 401, 403, 404, 405, 501:
			return true
		}
	}
	return errors.Is(err, ErrEndpointUnavailable)
}
