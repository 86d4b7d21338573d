package session

import "fmt"

// Error is a coded domain error. Code is stable across the API boundary;
// Message is operator-facing; Cause preserves the underlying error chain.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeUnresolvableDevice = "UNRESOLVABLE_DEVICE"
	ErrCodeProbeUnavailable   = "PROBE_UNAVAILABLE"
	ErrCodeInvalidSink        = "INVALID_SINK_ADDRESS"
	ErrCodeAlreadyStreaming   = "ALREADY_STREAMING"
	ErrCodeNoActiveSession    = "NO_ACTIVE_SESSION"
	ErrCodeSpawnFailure       = "SPAWN_FAILURE"
	ErrCodeEncoderCrashed     = "ENCODER_CRASHED"
	ErrCodeStopTimeout        = "STOP_TIMEOUT"
)

// NewError creates a new session error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
