package command

import (
	"bytes"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"github.com/zogwei/greys-anatomy/internal/metrics"
	"github.com/zogwei/greys-anatomy/internal/session"
	"github.com/zogwei/greys-anatomy/util"
)

// run executes one line against a piped session and returns everything
// the handler wrote to the client.
func run(t *testing.T, h *DiagnosticHandler, line string) (string, *session.Session, error) {
	t.Helper()

	srv, cli := net.Pipe()
	reg := session.NewRegistry(util.NewLogger(0), metrics.New())
	sess := reg.NewSession(1234, srv, unicode.UTF8, "utf-8")

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, cli) //nolint:errcheck
		close(done)
	}()

	err := h.Execute(line, sess)
	sess.Destroy()
	<-done
	return buf.String(), sess, err
}

func newHandler() *DiagnosticHandler {
	return NewDiagnosticHandler(util.NewLogger(0), metrics.New(), "9.9.9")
}

func TestHelp(t *testing.T) {
	out, _, err := run(t, newHandler(), "help")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"available commands", "stack", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, Prompt) {
		t.Errorf("prompt not redrawn: %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, newHandler(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "9.9.9") {
		t.Errorf("version output %q missing version", out)
	}
}

func TestPid(t *testing.T) {
	out, _, err := run(t, newHandler(), "pid")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, strconv.Itoa(1234)) {
		t.Errorf("pid output %q missing session pid", out)
	}
}

func TestSessionInfo(t *testing.T) {
	out, _, err := run(t, newHandler(), "session")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"id=", "token=", "charset=utf-8"} {
		if !strings.Contains(out, want) {
			t.Errorf("session output %q missing %q", out, want)
		}
	}
}

func TestStats(t *testing.T) {
	out, _, err := run(t, newHandler(), "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"commands_dispatched"`) {
		t.Errorf("stats output not a metrics snapshot:\n%s", out)
	}
}

func TestStack(t *testing.T) {
	out, _, err := run(t, newHandler(), "stack")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "goroutine") {
		t.Errorf("stack output %q has no goroutines", out)
	}
}

func TestUnknownCommandIsNotAnError(t *testing.T) {
	out, _, err := run(t, newHandler(), "frobnicate hard")
	if err != nil {
		t.Fatalf("unknown command returned error: %v", err)
	}
	if !strings.Contains(out, `unknown command "frobnicate"`) {
		t.Errorf("output %q missing unknown-command report", out)
	}
}

func TestEmptyLineRedrawsPromptOnly(t *testing.T) {
	out, _, err := run(t, newHandler(), "")
	if err != nil {
		t.Fatal(err)
	}
	if out != Prompt {
		t.Errorf("empty line wrote %q, want bare prompt", out)
	}
}

func TestQuitDestroysSession(t *testing.T) {
	out, sess, err := run(t, newHandler(), "quit")
	if err != nil {
		t.Fatal(err)
	}
	if !sess.IsDestroyed() {
		t.Error("session survives quit")
	}
	if !strings.Contains(out, "bye") {
		t.Errorf("quit output %q missing farewell", out)
	}
}

func TestDestroyedHandlerRefusesWork(t *testing.T) {
	h := newHandler()
	h.Destroy()

	out, _, err := run(t, h, "help")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("destroyed handler wrote %q", out)
	}
}

func TestWriteFailureReturnsError(t *testing.T) {
	srv, cli := net.Pipe()
	cli.Close() // handler writes will fail
	reg := session.NewRegistry(util.NewLogger(0), metrics.New())
	sess := reg.NewSession(1, srv, unicode.UTF8, "utf-8")

	if err := newHandler().Execute("help", sess); err == nil {
		t.Fatal("write to dead client returned nil")
	}
}
