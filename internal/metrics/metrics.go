// Package metrics provides lightweight, lock-free counters for the
// server's hot paths, plus a Prometheus bridge over them.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime statistics of the diagnosis server.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	linesDecoded      atomic.Int64
	commandsDispatch  atomic.Int64
	commandsDropped   atomic.Int64
	sessionsCreated   atomic.Int64
	sessionsDestroyed atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// ── Decode / dispatch metrics ────────────────────────────────────────

// LineDecoded records one complete line emitted by a decoder.
func (c *Collector) LineDecoded() {
	if c == nil {
		return
	}
	c.linesDecoded.Add(1)
}

// CommandDispatched records a line that reached the command handler.
func (c *Collector) CommandDispatched() {
	if c == nil {
		return
	}
	c.commandsDispatch.Add(1)
}

// CommandDropped records a line refused because its session was busy
// or destroyed.
func (c *Collector) CommandDropped() {
	if c == nil {
		return
	}
	c.commandsDropped.Add(1)
}

// SessionCreated records a session registration.
func (c *Collector) SessionCreated() {
	if c == nil {
		return
	}
	c.sessionsCreated.Add(1)
}

// SessionDestroyed records a session teardown.
func (c *Collector) SessionDestroyed() {
	if c == nil {
		return
	}
	c.sessionsDestroyed.Add(1)
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	ConnectionsActive  int64  `json:"connections_active"`
	ConnectionsTotal   int64  `json:"connections_total"`
	LinesDecoded       int64  `json:"lines_decoded"`
	CommandsDispatched int64  `json:"commands_dispatched"`
	CommandsDropped    int64  `json:"commands_dropped"`
	SessionsCreated    int64  `json:"sessions_created"`
	SessionsDestroyed  int64  `json:"sessions_destroyed"`
	BytesIn            int64  `json:"bytes_in"`
	BytesOut           int64  `json:"bytes_out"`
	ErrorsTotal        int64  `json:"errors_total"`
	LastError          string `json:"last_error,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:             time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive:  c.connectionsActive.Load(),
		ConnectionsTotal:   c.connectionsTotal.Load(),
		LinesDecoded:       c.linesDecoded.Load(),
		CommandsDispatched: c.commandsDispatch.Load(),
		CommandsDropped:    c.commandsDropped.Load(),
		SessionsCreated:    c.sessionsCreated.Load(),
		SessionsDestroyed:  c.sessionsDestroyed.Load(),
		BytesIn:            c.bytesIn.Load(),
		BytesOut:           c.bytesOut.Load(),
		ErrorsTotal:        c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
