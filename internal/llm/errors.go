package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the history is empty or does not end
	// with a user message.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCredentials is returned by the real transport when no API key
	// is configured.
	ErrMissingCredentials = errors.New("missing API key")
	// ErrDisabled is returned when the assistant is turned off in config.
	ErrDisabled = errors.New("assistant is disabled")
)

// RemoteRequestError reports a non-2xx response from the completion endpoint.
type RemoteRequestError struct {
	StatusCode int
	Message    string
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("remote request failed (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport-level failure such as DNS, TLS or a reset
// connection.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StreamDecodeWarning describes a streamed frame that could not be decoded.
// It is reported to loggers and metrics, never returned to callers.
type StreamDecodeWarning struct {
	Payload string
	Err     error
}

func (w *StreamDecodeWarning) Error() string {
	return fmt.Sprintf("skipping undecodable stream frame %q: %v", truncate(w.Payload, 80), w.Err)
}

func (w *StreamDecodeWarning) Unwrap() error {
	return w.Err
}

func validateHistory(history []ChatMessage) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: history is empty", ErrInvalidInput)
	}
	if last := history[len(history)-1]; last.Role != RoleUser {
		return fmt.Errorf("%w: last message has role %q, want %q", ErrInvalidInput, last.Role, RoleUser)
	}
	return nil
}
