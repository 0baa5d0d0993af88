// Package errors provides domain-specific error types for the diagnosis
// server.
//
// These types carry structured context (operation, address, lifecycle
// state) that lets callers distinguish programming errors from transient
// network conditions, and decide which executor failures must destroy a
// session.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrAlreadyBound is returned by Bind on a server that is bound.
	// Lifecycle misuse: fatal to the caller, never retried.
	ErrAlreadyBound = errors.New("server already bound")

	// ErrAlreadyUnbound is returned by Unbind on an unbound server.
	ErrAlreadyUnbound = errors.New("server already unbound")

	// ErrPoolClosed is returned when work is submitted to a stopped
	// dispatch pool.
	ErrPoolClosed = errors.New("dispatch pool is closed")

	// ErrSessionDestroyed is returned for writes against a session that
	// has been torn down.
	ErrSessionDestroyed = errors.New("session is destroyed")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op   string // operation: "listen", "accept", "read", "write"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsCommunication reports whether err is a network-communication
// failure between server and client.  A command handler returning such
// an error can no longer reach its client, so the owning session must
// be destroyed.  Ordinary command failures are the handler's own
// concern and never classify as communication errors.
func IsCommunication(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsTransient reports whether err represents a temporary accept/wait
// condition the server loop should ride out rather than die on.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still the right accept-loop hint
	}
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These let callers use this package as a drop-in for the standard
// library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }
