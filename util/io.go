package util

import (
	"errors"
	"io"
	"net"
)

// CloseQuietly closes c, swallowing the error.  Used on teardown paths
// where the resource may already be closed and a second failure carries
// no information.
func CloseQuietly(c io.Closer) {
	if c == nil {
		return
	}
	c.Close() //nolint:errcheck
}

// IsHarmless reports whether err is expected noise during shutdown or a
// normal remote close, as opposed to a genuine I/O failure.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
