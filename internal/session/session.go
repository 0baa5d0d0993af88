// Package session models one connected client: identity, negotiated
// character encoding, and the execution gate that serialises command
// execution for that client.
//
// The gate is deliberately a CAS boolean rather than a mutex.  A worker
// must be able to see "busy" and give up immediately (the line is
// dropped, never queued), and the decoder's control-byte path must be
// able to release the gate from the read loop while a worker still
// thinks it holds it.  Release is therefore an idempotent store.
package session

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	gaerrors "github.com/zogwei/greys-anatomy/internal/errors"
	"github.com/zogwei/greys-anatomy/internal/metrics"
)

// Session is the per-connection execution context.  Created by the
// Registry at accept time, destroyed on connection close, on I/O
// failure, or on explicit termination.
type Session struct {
	id        int64
	token     uuid.UUID // correlation token for logs
	pid       int
	conn      net.Conn
	charset   encoding.Encoding
	charsetNm string
	createdAt time.Time

	locked    atomic.Bool
	destroyed atomic.Bool

	metrics   *metrics.Collector
	onDestroy func(*Session)
}

// ID returns the numeric session id.
func (s *Session) ID() int64 { return s.id }

// Token returns the session's correlation token.
func (s *Session) Token() uuid.UUID { return s.token }

// PID returns the process id this session diagnoses.
func (s *Session) PID() int { return s.pid }

// Charset returns the session's character encoding.
func (s *Session) Charset() encoding.Encoding { return s.charset }

// CharsetName returns the IANA name of the session's encoding.
func (s *Session) CharsetName() string { return s.charsetNm }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// RemoteAddr returns the peer address, or "?" once the connection is
// gone.
func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return "?"
	}
	return s.conn.RemoteAddr().String()
}

// ── Execution gate ───────────────────────────────────────────────────

// TryLock attempts a non-blocking acquire of the execution gate.
// It fails when another command is in flight or the session is
// destroyed; callers drop the work on failure, they never wait.
func (s *Session) TryLock() bool {
	if s.destroyed.Load() {
		return false
	}
	return s.locked.CompareAndSwap(false, true)
}

// Unlock releases the execution gate.  Safe to call when the gate is
// not held: the control-byte path fires it regardless, and it can race
// with a worker's own release.
func (s *Session) Unlock() {
	s.locked.Store(false)
}

// IsLocked reports whether a command currently holds the gate.
func (s *Session) IsLocked() bool { return s.locked.Load() }

// ── Liveness ─────────────────────────────────────────────────────────

// Destroy marks the session permanently unusable and closes its
// connection.  Idempotent; only the first call runs the registry
// callback.
func (s *Session) Destroy() {
	if !s.destroyed.CompareAndSwap(false, true) {
		return
	}
	if s.conn != nil {
		s.conn.Close() //nolint:errcheck
	}
	if s.onDestroy != nil {
		s.onDestroy(s)
	}
}

// IsDestroyed reports whether Destroy has been called.
func (s *Session) IsDestroyed() bool { return s.destroyed.Load() }

// ── I/O ──────────────────────────────────────────────────────────────

// WriteString encodes text with the session's charset and writes it to
// the client.  Returns ErrSessionDestroyed after teardown; any other
// failure is a communication error.
func (s *Session) WriteString(text string) error {
	if s.destroyed.Load() {
		return gaerrors.ErrSessionDestroyed
	}
	data, err := s.charset.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return fmt.Errorf("encode for %s: %w", s.charsetNm, err)
	}
	n, err := s.conn.Write(data)
	s.metrics.BytesSent(int64(n))
	if err != nil {
		return gaerrors.Wrap("write", s.RemoteAddr(), err)
	}
	return nil
}

// String implements fmt.Stringer for log lines.
func (s *Session) String() string {
	return fmt.Sprintf("session[%d/%s]", s.id, s.token)
}
