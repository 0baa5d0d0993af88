package errors

import (
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestSentinels(t *testing.T) {
	wrapped := fmt.Errorf("bind: %w", ErrAlreadyBound)
	if !Is(wrapped, ErrAlreadyBound) {
		t.Error("wrapped ErrAlreadyBound not detected")
	}
	if Is(wrapped, ErrAlreadyUnbound) {
		t.Error("ErrAlreadyBound matched ErrAlreadyUnbound")
	}
}

func TestNetworkError(t *testing.T) {
	inner := New("connection refused")
	err := Wrap("listen", "127.0.0.1:3658", inner)

	if got := err.Error(); got != "listen 127.0.0.1:3658: connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if Unwrap(err) != inner {
		t.Error("Unwrap lost the inner error")
	}

	var ne *NetworkError
	if !As(fmt.Errorf("outer: %w", err), &ne) {
		t.Error("As failed through wrapping")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "port",
		Value:   99999,
		Message: "out of range 1-65535",
		Hint:    "pick something below 65536",
	}
	got := err.Error()
	for _, want := range []string{"--port", "99999", "out of range", "hint:"} {
		if !strings.Contains(got, want) {
			t.Errorf("ConfigError %q missing %q", got, want)
		}
	}

	noHint := &ConfigError{Field: "bind", Message: "required"}
	if strings.Contains(noHint.Error(), "hint") {
		t.Errorf("hint rendered when empty: %q", noHint.Error())
	}
}

func TestIsCommunication(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", New("bad argument"), false},
		{"eof", io.EOF, true},
		{"closed pipe", io.ErrClosedPipe, true},
		{"net closed", net.ErrClosed, true},
		{"epipe", syscall.EPIPE, true},
		{"reset", syscall.ECONNRESET, true},
		{"op error", &net.OpError{Op: "write", Err: New("x")}, true},
		{"network error", Wrap("write", "addr", New("x")), true},
		{"wrapped eof", fmt.Errorf("send: %w", io.EOF), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCommunication(tt.err); got != tt.want {
				t.Errorf("IsCommunication(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil classified transient")
	}
	if !IsTransient(syscall.EMFILE) {
		t.Error("EMFILE not transient")
	}
	if IsTransient(New("boom")) {
		t.Error("plain error classified transient")
	}
}
