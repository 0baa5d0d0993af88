// Package server implements the connection-handling core: accepting
// clients, decoding their byte streams into command lines, and
// dispatching lines to the command layer with at most one command in
// flight per session.
package server

import (
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zogwei/greys-anatomy/config"
	"github.com/zogwei/greys-anatomy/internal/command"
	gaerrors "github.com/zogwei/greys-anatomy/internal/errors"
	"github.com/zogwei/greys-anatomy/internal/metrics"
	"github.com/zogwei/greys-anatomy/internal/retry"
	"github.com/zogwei/greys-anatomy/internal/session"
	"github.com/zogwei/greys-anatomy/util"
	"golang.org/x/text/encoding"
)

// Server owns the listener, the dispatch pool, and the bind/unbind
// lifecycle.  One instance per process; the caller threads it through
// explicitly rather than via package state.
type Server struct {
	cfg      *config.Config
	logger   *util.Logger
	registry *session.Registry
	handler  command.Handler
	metrics  *metrics.Collector
	pool     *Pool

	pid         int
	charset     encoding.Encoding
	charsetName string

	bound  atomic.Bool
	mu     sync.Mutex // guards ln across Bind/Unbind
	ln     net.Listener
	loopWG sync.WaitGroup
}

// New builds a server.  cfg must have passed Validate.
func New(cfg *config.Config, logger *util.Logger, registry *session.Registry,
	handler command.Handler, collector *metrics.Collector) *Server {

	charset, err := cfg.Encoding()
	if err != nil {
		// Validate has already vetted the charset; a failure here is
		// a caller bug.
		panic(err)
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		registry:    registry,
		handler:     handler,
		metrics:     collector,
		pid:         os.Getpid(),
		charset:     charset,
		charsetName: cfg.Charset,
	}
	s.pool = NewPool(s.runTask, cfg.IdleWorkerTimeout)
	return s
}

// IsBound reports whether the server is currently bound.
func (s *Server) IsBound() bool { return s.bound.Load() }

// Bind opens the listener and starts the accept loop.  Binding an
// already-bound server is a lifecycle error.  Any setup failure
// triggers a best-effort Unbind before the error is surfaced.
func (s *Server) Bind() error {
	if !s.bound.CompareAndSwap(false, true) {
		return gaerrors.ErrAlreadyBound
	}

	addr := s.cfg.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.Unbind() //nolint:errcheck // best-effort cleanup before surfacing
		return gaerrors.Wrap("listen", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("listening on %s (pid=%d charset=%s timeout=%s)",
		addr, s.pid, s.charsetName, s.cfg.ConnectTimeout)

	s.loopWG.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Unbind destroys all sessions, closes the listener, and transitions
// back to unbound.  Unbinding an unbound server is a lifecycle error.
func (s *Server) Unbind() error {
	s.registry.Clean()

	s.mu.Lock()
	if s.ln != nil {
		util.CloseQuietly(s.ln)
		s.ln = nil
	}
	s.mu.Unlock()

	if !s.bound.CompareAndSwap(true, false) {
		return gaerrors.ErrAlreadyUnbound
	}
	s.loopWG.Wait()
	s.logger.Info("server unbound")
	return nil
}

// Shutdown is the process-exit sequence.  Order matters: stop
// accepting dispatch work, tear down the command layer, tear down the
// sessions, then unbind if still bound — no component is destroyed
// while another still depends on it.
func (s *Server) Shutdown() {
	s.pool.Stop()
	s.handler.Destroy()
	s.registry.Clean()
	if s.IsBound() {
		if err := s.Unbind(); err != nil {
			s.logger.Warn("unbind during shutdown: %v", err)
		}
	}
}

// ── Accept path ──────────────────────────────────────────────────────

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.loopWG.Done()

	backoff := retry.AcceptBackoff()
	failures := 0

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed during unbind: expected, exit silently.
			if util.IsHarmless(err) || !s.bound.Load() {
				return
			}
			failures++
			if gaerrors.IsTransient(err) {
				s.logger.Warn("accept failed (transient): %v", err)
			} else {
				s.logger.Warn("accept failed: %v", err)
				s.metrics.RecordError(err.Error())
			}
			time.Sleep(backoff.Delay(failures))
			continue
		}
		failures = 0
		s.doAccept(conn)
	}
}

func (s *Server) doAccept(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true) //nolint:errcheck
	}

	s.metrics.ConnectionOpened()
	sess := s.registry.NewSession(s.pid, conn, s.charset, s.charsetName)
	s.logger.Info("accepted connection, client=%s %s", conn.RemoteAddr(), sess)

	// The greeting is the only write on the accept path; bound it so a
	// stalled client cannot hold up further accepts.
	if s.cfg.ConnectTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.ConnectTimeout)) //nolint:errcheck
	}
	if err := s.greet(sess); err != nil {
		s.logger.Warn("greeting failed, client=%s: %v", conn.RemoteAddr(), err)
		s.metrics.RecordError(err.Error())
		sess.Destroy()
		s.metrics.ConnectionClosed()
		return
	}
	conn.SetWriteDeadline(time.Time{}) //nolint:errcheck

	go s.serveConn(conn, sess)
}

func (s *Server) greet(sess *session.Session) error {
	if err := sess.WriteString(Logo()); err != nil {
		return err
	}
	return sess.WriteString(command.Prompt)
}

// ── Dispatch path ────────────────────────────────────────────────────

// runTask executes one line on a pool worker.  The gate decides: a
// busy or destroyed session drops the line — there is no queue, the
// client waits for a prompt or sends a cancel byte.
func (s *Server) runTask(t Task) {
	sess := t.Session
	if sess.IsDestroyed() || !sess.TryLock() {
		s.metrics.CommandDropped()
		s.logger.Info("%s is busy, command dropped", sess)
		return
	}
	defer sess.Unlock() // cleanup must not deadlock, even after Destroy

	s.metrics.CommandDispatched()
	if err := s.handler.Execute(t.Line, sess); err != nil {
		if gaerrors.IsCommunication(err) {
			s.logger.Warn("network communicate failed, %s: %v", sess, err)
			s.metrics.RecordError(err.Error())
			sess.Destroy()
			return
		}
		// Handlers report ordinary failures to the client themselves;
		// anything else surfacing here is a handler bug worth noise.
		s.logger.Error("command handler error, %s: %v", sess, err)
	}
}
