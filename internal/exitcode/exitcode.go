package exitcode

import (
	"context"
	"errors"

	"github.com/samsaffron/chatstream/internal/llm"
)

// Exit codes for chatstream commands
const (
	Success       = 0
	Error         = 1
	Usage         = 2 // invalid input or configuration
	Disabled      = 3
	Unauthorized  = 4 // missing or rejected credentials
	Unreachable   = 5 // network failure or remote error
	ConnectFailed = 6 // connection test answered "no"
	Cancelled     = 130
)

// ExitError is an error that carries a specific exit code
type ExitError struct {
	Code    int
	Message string
}

func (e ExitError) Error() string {
	return e.Message
}

func Cancel() ExitError { return ExitError{Code: Cancelled, Message: "cancelled"} }

// For maps chat errors onto exit codes.
func For(err error) int {
	if err == nil {
		return Success
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var remote *llm.RemoteRequestError
	var network *llm.NetworkError
	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled
	case errors.As(err, &remote):
		if remote.StatusCode == 401 || remote.StatusCode == 403 {
			return Unauthorized
		}
		return Unreachable
	case errors.Is(err, llm.ErrMissingCredentials):
		return Unauthorized
	case errors.Is(err, llm.ErrInvalidInput):
		return Usage
	case errors.Is(err, llm.ErrDisabled):
		return Disabled
	case errors.As(err, &network):
		return Unreachable
	}
	return Error
}
