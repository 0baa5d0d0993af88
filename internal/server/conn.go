package server

import (
	"errors"
	"io"
	"net"

	gaerrors "github.com/zogwei/greys-anatomy/internal/errors"
	"github.com/zogwei/greys-anatomy/internal/session"
	"github.com/zogwei/greys-anatomy/util"
)

// serveConn is the per-connection read loop: read up to one chunk,
// feed the decoder, hand completed lines to the pool.  This goroutine
// owns the decoder state and never blocks on command execution —
// control bytes act on the session gate right here, so a cancel can
// never be starved by a busy worker.
func (s *Server) serveConn(conn net.Conn, sess *session.Session) {
	defer s.metrics.ConnectionClosed()
	defer sess.Destroy()

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	scratch := *bufp

	dec := NewLineDecoder(util.ChunkSize, sess.Charset())

	emit := func(line string) {
		s.metrics.LineDecoded()
		if err := s.pool.Submit(Task{Line: line, Session: sess}); err != nil {
			if errors.Is(err, gaerrors.ErrPoolClosed) {
				s.logger.Verbose("%s: pool closed, line discarded", sess)
				return
			}
			s.logger.Warn("%s: submit failed: %v", sess, err)
		}
	}
	control := func(b byte) {
		s.logger.Debug("%s: control byte 0x%02x, releasing gate", sess, b)
		sess.Unlock()
	}

	for {
		n, err := conn.Read(scratch)
		if n > 0 {
			s.metrics.BytesReceived(int64(n))
			if derr := dec.Scan(scratch[:n], emit, control); derr != nil {
				s.logger.Warn("decode failed, client=%s will be closed: %v",
					conn.RemoteAddr(), derr)
				s.metrics.RecordError(derr.Error())
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// normal close
				s.logger.Info("client=%s closed, %s", conn.RemoteAddr(), sess)
			case util.IsHarmless(err):
				// server-side teardown pulled the connection out
			default:
				s.logger.Warn("read failed, client=%s will be closed: %v",
					conn.RemoteAddr(), err)
				s.metrics.RecordError(err.Error())
			}
			return
		}
	}
}
