package xtransport

import (
	"errors"
	"fmt"
)

// Kind classifies transport errors. A tagged variant is used instead of a
// type hierarchy so callers can switch on the classification directly.
type Kind string

const (
	// KindNotImplemented marks a capability the base declares but does not
	// implement; concrete backends are expected to override it.
	KindNotImplemented Kind = "not_implemented"
	// KindTransportDisconnected marks unrecoverable loss of connectivity.
	KindTransportDisconnected Kind = "transport_disconnected"
	// KindRequest marks a failure sending a message.
	KindRequest Kind = "request"
	// KindResponse is the base classification for failures tied to a
	// received response. It carries the raw response payload.
	KindResponse Kind = "response"
	// KindInvalidMessage marks a malformed outbound message (client error).
	KindInvalidMessage Kind = "invalid_message"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	// KindResponseProcessing marks a server-side processing failure.
	KindResponseProcessing Kind = "response_processing"
	// KindInvalidArgument marks synchronous input-validation failures.
	// Raised fast, never retried, never auto-logged.
	KindInvalidArgument Kind = "invalid_argument"
)

// Log-level hints carried by errors. The instrumentation wrapper maps the
// hint onto the configured logger; an unknown level skips logging.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Error is the structured error for all transport failures. Immutable once
// constructed; the With* helpers return copies.
type Error struct {
	Kind    Kind
	Message string
	// Response holds the raw response payload for response-related kinds.
	Response any
	// Level hints the severity the instrumentation wrapper should log at.
	// Empty means the default ("error").
	Level string
	// SkipLog suppresses auto-logging by the instrumentation wrapper.
	SkipLog bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("xtransport: %s: %s", e.Kind, e.Message)
}

// KindOf returns the classification of err, or the empty Kind for errors
// that are not transport errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// NewInvalidArgument builds a validation error.
func NewInvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewNotImplemented marks an operation the backend does not provide.
func NewNotImplemented(op string) *Error {
	return &Error{Kind: KindNotImplemented, Message: fmt.Sprintf("%s is not implemented by this transport", op)}
}

// NewTransportDisconnected builds an unrecoverable-connectivity error.
func NewTransportDisconnected(format string, args ...any) *Error {
	return &Error{Kind: KindTransportDisconnected, Message: fmt.Sprintf(format, args...)}
}

// NewRequestError builds a send-failure error.
func NewRequestError(format string, args ...any) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf(format, args...)}
}

// NewResponseError builds a response-related error of the given kind with
// the raw response attached. Kinds outside the response family collapse to
// KindResponse so the Response field stays meaningful.
func NewResponseError(k Kind, message string, response any) *Error {
	switch k {
	case KindResponse, KindInvalidMessage, KindUnauthorized, KindForbidden, KindNotFound, KindResponseProcessing:
	default:
		k = KindResponse
	}
	return &Error{Kind: k, Message: message, Response: response}
}

// WithLevel returns a copy of e carrying a log-level hint.
func (e *Error) WithLevel(level string) *Error {
	c := *e
	c.Level = level
	return &c
}

// WithSkipLog returns a copy of e that suppresses auto-logging.
func (e *Error) WithSkipLog() *Error {
	c := *e
	c.SkipLog = true
	return &c
}
