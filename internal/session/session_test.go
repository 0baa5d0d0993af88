package session

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	gaerrors "github.com/zogwei/greys-anatomy/internal/errors"
	"github.com/zogwei/greys-anatomy/internal/metrics"
	"github.com/zogwei/greys-anatomy/util"
)

func testRegistry() *Registry {
	return NewRegistry(util.NewLogger(0), metrics.New())
}

func TestGateTryLockUnlock(t *testing.T) {
	reg := testRegistry()
	s := reg.NewSession(42, nil, unicode.UTF8, "utf-8")

	if !s.TryLock() {
		t.Fatal("first TryLock failed")
	}
	if s.TryLock() {
		t.Fatal("second TryLock succeeded while gate held")
	}
	s.Unlock()
	if !s.TryLock() {
		t.Fatal("TryLock failed after Unlock")
	}
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	reg := testRegistry()
	s := reg.NewSession(42, nil, unicode.UTF8, "utf-8")

	// Releasing an unheld gate is a safe no-op: the control-byte path
	// fires regardless of whether a command is running.
	s.Unlock()
	s.Unlock()
	if s.IsLocked() {
		t.Fatal("gate locked after double Unlock")
	}
	if !s.TryLock() {
		t.Fatal("TryLock failed after no-op Unlocks")
	}
}

func TestDestroyedSessionRefusesLock(t *testing.T) {
	reg := testRegistry()
	s := reg.NewSession(42, nil, unicode.UTF8, "utf-8")

	s.Destroy()
	s.Destroy() // idempotent

	if !s.IsDestroyed() {
		t.Fatal("session not destroyed")
	}
	if s.TryLock() {
		t.Fatal("TryLock succeeded on a destroyed session")
	}
	if err := s.WriteString("x"); !gaerrors.Is(err, gaerrors.ErrSessionDestroyed) {
		t.Errorf("WriteString = %v, want ErrSessionDestroyed", err)
	}
}

func TestWriteStringEncodesCharset(t *testing.T) {
	srv, cli := net.Pipe()
	reg := testRegistry()
	s := reg.NewSession(1, srv, simplifiedchinese.GBK, "gbk")

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, cli) //nolint:errcheck
		close(done)
	}()

	if err := s.WriteString("你好"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	s.Destroy()
	<-done

	want, _ := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("你好"))
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wrote %x, want GBK bytes %x", buf.Bytes(), want)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := testRegistry()

	a := reg.NewSession(1, nil, unicode.UTF8, "utf-8")
	b := reg.NewSession(1, nil, unicode.UTF8, "utf-8")

	if a.ID() == b.ID() {
		t.Errorf("session ids collide: %d", a.ID())
	}
	if a.Token() == b.Token() {
		t.Error("session tokens collide")
	}
	if got := reg.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}

	if s, ok := reg.Get(a.ID()); !ok || s != a {
		t.Error("Get did not return the registered session")
	}

	a.Destroy()
	if got := reg.Count(); got != 1 {
		t.Errorf("Count after destroy = %d, want 1", got)
	}
	if _, ok := reg.Get(a.ID()); ok {
		t.Error("destroyed session still registered")
	}

	reg.Clean()
	if got := reg.Count(); got != 0 {
		t.Errorf("Count after Clean = %d, want 0", got)
	}
	if !b.IsDestroyed() {
		t.Error("Clean did not destroy remaining session")
	}
}

func TestSessionString(t *testing.T) {
	reg := testRegistry()
	s := reg.NewSession(1, nil, unicode.UTF8, "utf-8")
	if got := s.String(); !strings.HasPrefix(got, "session[") {
		t.Errorf("String = %q", got)
	}
}
