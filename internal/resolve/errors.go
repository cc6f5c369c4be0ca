package resolve

import (
	"errors"
	"fmt"

	"probatescout-engine/internal/fetch"
)

// ErrNoHouseNumber means the target address has no extractable house number,
// so no structural query can be built. The resolver returns it before any
// network traffic happens.
var ErrNoHouseNumber = errors.New("address has no extractable house number")

// ConfigError means the source descriptor cannot serve the requested
// operation at all. Fatal for that resolution; never retried.
type ConfigError struct {
	Source string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("source %q: %s", e.Source, e.Reason)
}

// ExhaustedError means every variant in a cascade failed at the transport
// layer. It is surfaced (instead of a plain "no match") only when no variant
// produced a real answer, so the caller knows a retry might help.
type ExhaustedError struct {
	Source   string
	Timeout  bool // at least one failure was a deadline expiry
	Outcomes []Outcome
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("source %q: all %d query variants failed at transport layer", e.Source, len(e.Outcomes))
}

// IsRetryable reports whether err indicates a transport-level exhaustion
// rather than a negative answer or a configuration problem.
func IsRetryable(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee) || fetch.IsTransport(err)
}
