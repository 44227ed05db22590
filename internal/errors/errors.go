// Package errors provides structured, kind-tagged errors for the release
// orchestrator, following the classification in the error handling design
// (transient, configuration, business failure, state conflict, internal).
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for retry and exit-code decisions.
type Kind uint8

const (
	// KindUnknown is the zero value; avoid constructing errors with it.
	KindUnknown Kind = iota
	// KindConfig is a configuration error: missing package, bad template,
	// unknown workflow. Fatal, never retried.
	KindConfig
	// KindClient is a transient transport failure from a client call
	// (network timeout, 5xx, rate limit). Retried by the client layer.
	KindClient
	// KindLock is a state-conflict error: the release lock is held by
	// another holder. Fatal for this attempt.
	KindLock
	// KindBusinessFailure is a terminal remote outcome (workflow
	// conclusion = failure/cancelled/timed_out). Never auto-retried
	// except by an explicit Retry decorator.
	KindBusinessFailure
	// KindState is an internal invariant violation in the persisted
	// state document. Treated as a bug.
	KindState
	// KindInternal is any other unexpected internal failure.
	KindInternal
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindClient:
		return "client"
	case KindLock:
		return "lock"
	case KindBusinessFailure:
		return "business_failure"
	case KindState:
		return "state"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the standard error type returned by every package in this
// module. It carries enough context to decide exit codes and log
// structure without string-matching error messages.
type Error struct {
	Kind        Kind
	Op          string
	Message     string
	Err         error
	Recoverable bool
	Details     map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel *Error values by Kind, or by Kind+Op when the
// target specifies an Op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetail attaches a single key/value to the error and returns it.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with kind, operation and message.
func Wrap(err error, kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// GetKind returns the Kind of err, or KindUnknown if err is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsRecoverable reports whether err was marked recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}
