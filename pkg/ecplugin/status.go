// Package ecplugin defines the host-facing erasure-code plugin contract:
// status codes, shard containers, the Core codec interface every concrete
// codec implements, and the Facade that wraps a Core into the full plugin
// surface a host object store expects (accessors, rule creation, the
// deprecated dual signatures, delta operations).
package ecplugin

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is one of the neutral disposition codes the host sees across the
// plugin interface (spec §6).
type Status int

const (
	// OK indicates success.
	OK Status = iota
	// Invalid indicates a precondition on the caller's input was not met.
	Invalid
	// NotFound indicates a missing resource: the native library, or
	// insufficient shards under the always-decode policy.
	NotFound
	// NotSupported indicates an operation defined by the interface but not
	// implemented by this codec, or an unrecoverable shard pattern.
	NotSupported
	// IO indicates the native codec itself reported failure.
	IO
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Invalid:
		return "INVALID"
	case NotFound:
		return "NOT_FOUND"
	case NotSupported:
		return "NOT_SUPPORTED"
	case IO:
		return "IO"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Error wraps a Status with the detail that triggered it. Callers compare
// against the sentinel status with errors.Is; Status itself never
// implements error so call sites cannot accidentally return a Status where
// an error is expected.
type Error struct {
	status Status
	detail string
}

func (e *Error) Error() string {
	if e.detail == "" {
		return e.status.String()
	}
	return fmt.Sprintf("%s: %s", e.status, e.detail)
}

// Status returns the status code this error carries.
func (e *Error) Status() Status { return e.status }

// Is reports whether target is an *Error carrying the same Status, so callers
// can write errors.Is(err, ecplugin.Sentinel(ecplugin.NotFound)) without
// reaching for e.Status().
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.status == e.status
}

// NewError builds an *Error carrying status, formatting detail like fmt.Sprintf.
func NewError(status Status, format string, args ...any) *Error {
	return &Error{status: status, detail: fmt.Sprintf(format, args...)}
}

// Sentinel returns a comparable *Error for use with errors.Is(err, Sentinel(NotFound)).
func Sentinel(status Status) *Error { return &Error{status: status} }

// Wrap annotates a lower-level error (typically from the native codec) with
// a plugin Status, using github.com/pkg/errors to attach a stack trace to the
// cause (reachable through errors.Unwrap; formatting the wrapper itself
// prints only the status and detail) while errors.Is(wrapped,
// Sentinel(status)) holds.
func Wrap(err error, status Status, detail string) error {
	if err == nil {
		return nil
	}
	return &causedError{errInfo: &Error{status: status, detail: detail}, cause: errors.WithStack(err)}
}

type causedError struct {
	errInfo *Error
	cause   error
}

func (w *causedError) Error() string { return w.errInfo.Error() }

func (w *causedError) Status() Status { return w.errInfo.Status() }

func (w *causedError) Is(target error) bool { return w.errInfo.Is(target) }

func (w *causedError) Unwrap() error { return w.cause }
