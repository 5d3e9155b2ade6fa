package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers connection failures and timeouts.
	ErrTransport = errors.New("network error")
	// ErrUpstreamStatus is matched by every *StatusError.
	ErrUpstreamStatus = errors.New("api error")
	// ErrDecode is returned when a 2xx body does not decode into the expected shape.
	ErrDecode = errors.New("json parsing error")
	// ErrParse is returned when a numeric field from upstream cannot be parsed.
	ErrParse = errors.New("number parsing error")

	ErrInvalidZIP         = errors.New("invalid ZIP code")
	ErrInvalidCoordinates = errors.New("invalid coordinates: lat must be between -90 and 90, lon between -180 and 180")
	ErrLocationNotFound   = errors.New("location not found")
	ErrNoWeatherData      = errors.New("no weather data available")

	// ErrCircuitOpen is returned without contacting the host while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// StatusError is a non-2xx upstream response. The body is kept verbatim.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: HTTP %d: %s", ErrUpstreamStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstreamStatus
}
