package grammar

import (
	"errors"
	"fmt"
	"time"
)

// Failure kinds reported by the grammar client. Match them with errors.Is.
var (
	ErrUnreachable       = errors.New("grammar service unreachable")
	ErrRateLimited       = errors.New("grammar service rate limit exceeded")
	ErrUpstreamStatus    = errors.New("grammar service returned an error status")
	ErrMalformedResponse = errors.New("grammar service returned a malformed response")
)

// ServiceError describes a failed grammar check
type ServiceError struct {
	Kind       error         // One of the Err* sentinels above
	StatusCode int           // HTTP status, 0 when no response was received
	RetryAfter time.Duration // From a 429's Retry-After header, 0 when absent
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error
func (e *ServiceError) Is(target error) bool {
	return target == e.Kind
}

// KindName returns a stable identifier for err's failure kind,
// or "" when err did not come from the grammar client
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	default:
		return ""
	}
}

// isRetryable reports whether a failed check may succeed on another attempt
func isRetryable(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}

	switch se.Kind {
	case ErrUnreachable, ErrRateLimited:
		return true
	case ErrUpstreamStatus:
		return se.StatusCode >= 500
	default:
		return false
	}
}

func unreachable(err error) *ServiceError {
	return &ServiceError{Kind: ErrUnreachable, Err: err}
}

func malformed(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: ErrMalformedResponse, Err: fmt.Errorf(format, args...)}
}
