// Package mcperrors provides structured error classification for the MCP
// client runtime, the chat session state machine, and the sampling bridge.
package mcperrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure so callers can branch on cause rather than
// string-match messages.
type Kind int8

const (
	// KindTransport covers subprocess spawn failures, broken pipes, and
	// stdio framing errors on the wire to an MCP server.
	KindTransport Kind = iota
	// KindSerialization covers JSON encode/decode failures on either side
	// of the JSON-RPC boundary.
	KindSerialization
	// KindTimeout covers a request that did not receive a matching
	// response before its deadline.
	KindTimeout
	// KindNegotiation covers initialize/protocol-version mismatches.
	KindNegotiation
	// KindInvalidPath covers a server command that cannot be resolved or
	// executed (missing binary, unreadable config path).
	KindInvalidPath
	// KindProcessLifecycle covers a server subprocess that exited,
	// crashed, or was killed outside of a normal shutdown.
	KindProcessLifecycle
	// KindClient covers caller misuse: requests after shutdown, unknown
	// server names, duplicate ids.
	KindClient
	// KindResponseStream covers failures surfaced while parsing a model
	// response stream (provider-side errors, malformed deltas).
	KindResponseStream
	// KindIO covers local filesystem or terminal I/O failures.
	KindIO
	// KindReadline covers failures reading a line of interactive input.
	KindReadline
	// KindInterrupted covers a user-initiated cancellation (Ctrl-C)
	// during tool execution or model streaming.
	KindInterrupted
	// KindCustom covers a named MCP server error returned in a JSON-RPC
	// error object, or anything that does not fit the above.
	KindCustom
)

// String returns the lowercase wire-friendly name of the error kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSerialization:
		return "serialization"
	case KindTimeout:
		return "timeout"
	case KindNegotiation:
		return "negotiation"
	case KindInvalidPath:
		return "invalid_path"
	case KindProcessLifecycle:
		return "process_lifecycle"
	case KindClient:
		return "client"
	case KindResponseStream:
		return "response_stream"
	case KindIO:
		return "io"
	case KindReadline:
		return "readline"
	case KindInterrupted:
		return "interrupted"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned across the MCP client,
// chat state machine, and sampling bridge packages.
type Error struct {
	Err       error  // Wrapped underlying error, if any
	Message   string // Human-readable message
	Server    string // Originating MCP server name, when applicable
	ToolUses  []string // Tool-use ids left pending when Kind is KindInterrupted
	Kind      Kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("mcp %s error", e.Kind.String())
	if e.Server != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Server)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or KindCustom if err is not a *Error.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindCustom
}

// New creates a classified error with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Err: cause, Message: message}
}

// WrapServer creates a classified error attributed to a named MCP server.
func WrapServer(kind Kind, server string, cause error, message string) *Error {
	return &Error{Kind: kind, Server: server, Err: cause, Message: message}
}

// Interrupted creates a KindInterrupted error carrying the tool-use ids
// that were still outstanding when the interruption happened, so the
// conversation can synthesize cancellation records for them.
func Interrupted(pendingToolUses []string) *Error {
	return &Error{
		Kind:     KindInterrupted,
		Message:  "interrupted by user",
		ToolUses: pendingToolUses,
	}
}

// IsRetryable reports whether the error kind generally warrants a retry
// at the transport layer. Client and negotiation failures are not.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindTimeout, KindResponseStream:
		return true
	default:
		return false
	}
}
