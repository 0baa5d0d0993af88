package command

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zogwei/greys-anatomy/internal/metrics"
	"github.com/zogwei/greys-anatomy/internal/session"
	"github.com/zogwei/greys-anatomy/util"
)

const helpText = `available commands:
  help                 this text
  version              server version
  pid                  process id under diagnosis
  session              current session details
  stats                server statistics (json)
  stack                dump all goroutine stacks
  quit | exit          close this session`

// DiagnosticHandler is the built-in command set: process and runtime
// introspection for the host process.
type DiagnosticHandler struct {
	logger    *util.Logger
	metrics   *metrics.Collector
	version   string
	destroyed atomic.Bool
}

// NewDiagnosticHandler returns the default handler.
func NewDiagnosticHandler(logger *util.Logger, collector *metrics.Collector, version string) *DiagnosticHandler {
	return &DiagnosticHandler{
		logger:  logger,
		metrics: collector,
		version: version,
	}
}

// Execute runs one command line and redraws the prompt.  Unknown
// commands and ordinary failures are reported to the client, not
// returned.
func (h *DiagnosticHandler) Execute(line string, sess *session.Session) error {
	if h.destroyed.Load() {
		return nil
	}

	name := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		name = line[:i]
	}
	name = strings.TrimSpace(name)

	var out string
	switch name {
	case "":
		// bare newline: just redraw the prompt

	case "help":
		out = helpText

	case "version":
		out = "greys-anatomy " + h.version + " (" + runtime.Version() + ")"

	case "pid":
		out = strconv.Itoa(sess.PID())

	case "session":
		out = fmt.Sprintf("id=%d token=%s client=%s charset=%s age=%s",
			sess.ID(), sess.Token(), sess.RemoteAddr(), sess.CharsetName(),
			time.Since(sess.CreatedAt()).Truncate(time.Second))

	case "stats":
		out = h.metrics.JSON()

	case "stack":
		out = dumpStacks()

	case "quit", "exit":
		// best effort; the session is going away either way
		sess.WriteString("bye.\n") //nolint:errcheck
		h.logger.Info("%s quit", sess)
		sess.Destroy()
		return nil

	default:
		out = fmt.Sprintf("unknown command %q, try help.", name)
	}

	if out != "" {
		if err := sess.WriteString(out + "\n"); err != nil {
			return err
		}
	}
	return sess.WriteString(Prompt)
}

// Destroy refuses further commands.
func (h *DiagnosticHandler) Destroy() {
	h.destroyed.Store(true)
}

// dumpStacks returns the stacks of all goroutines, growing the buffer
// until the dump fits.
func dumpStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
