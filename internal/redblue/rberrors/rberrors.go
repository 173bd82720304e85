// Package rberrors implements this program's four-way error taxonomy:
// ConfigError, MalformedFrame, TransportError and InternalError. Each
// is a sentinel that call sites wrap with context via
// github.com/pkg/errors, so a fatal exit can print a full cause chain
// while still letting callers test the taxonomy with errors.Is.
package rberrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel taxonomy values.
var (
	ErrConfig    = errors.New("config error")
	ErrMalformed = errors.New("malformed frame")
	ErrTransport = errors.New("transport error")
	ErrInternal  = errors.New("internal error")
)

// ExitCode returns the process exit code assigned to each taxonomy
// member, or 0 if err does not match a known sentinel.
func ExitCode(err error) int {
	switch {
	case errors.Is(err, ErrConfig):
		return 1
	case errors.Is(err, ErrMalformed):
		return 2
	case errors.Is(err, ErrTransport):
		return 3
	case errors.Is(err, ErrInternal):
		return 4
	default:
		return 0
	}
}

// Config builds a ConfigError from a formatted message.
func Config(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, msg, args...)
}

// Malformed builds a MalformedFrame error from a formatted message.
func Malformed(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, msg, args...)
}

// Transport wraps a transport-layer cause as a TransportError. cause's
// text is folded into the message so the underlying I/O failure is
// still visible, but the sentinel stays ErrTransport so errors.Is
// keeps working for callers that only care about the taxonomy.
func Transport(cause error, msg string, args ...interface{}) error {
	return errors.Wrapf(ErrTransport, "%s: %v", fmt.Sprintf(msg, args...), cause)
}

// Internal wraps an invariant violation as an InternalError.
func Internal(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrInternal, msg, args...)
}
