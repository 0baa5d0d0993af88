// Package config defines the runtime configuration for the diagnosis
// server and its validation rules.
package config

import (
	"net"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	gaerrors "github.com/zogwei/greys-anatomy/internal/errors"
	"github.com/zogwei/greys-anatomy/util"
)

// Config holds every tuneable of a server instance.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	BindAddr       string        // local IP to bind
	Port           int           // listen port
	ConnectTimeout time.Duration // bounds the greeting write on accept

	// ── Protocol ─────────────────────────────────────────────────────
	Charset string // IANA name of the charset for new sessions

	// ── Dispatch ─────────────────────────────────────────────────────
	IdleWorkerTimeout time.Duration // reap pool workers idle this long

	// ── Observability ────────────────────────────────────────────────
	MetricsAddr string // host:port for /metrics; empty disables it
	Verbose     int
}

// ListenAddr returns the "host:port" the server binds.
func (c *Config) ListenAddr() string {
	return util.FormatAddr(c.BindAddr, c.Port)
}

// Encoding resolves the configured charset name against the IANA
// registry.
func (c *Config) Encoding() (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(c.Charset)
	if err != nil || enc == nil {
		return nil, &gaerrors.ConfigError{
			Field:   "charset",
			Value:   c.Charset,
			Message: "unknown or unsupported IANA charset",
			Hint:    `try "utf-8" or "gbk"`,
		}
	}
	return enc, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.BindAddr == "" {
		return &gaerrors.ConfigError{
			Field:   "bind",
			Message: "bind address is required",
			Hint:    "use 127.0.0.1 for local-only access",
		}
	}
	if net.ParseIP(c.BindAddr) == nil {
		return &gaerrors.ConfigError{
			Field:   "bind",
			Value:   c.BindAddr,
			Message: "not an IP address",
			Hint:    "use a literal IP, e.g. 127.0.0.1 or 0.0.0.0",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &gaerrors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
		}
	}
	if c.ConnectTimeout < 0 {
		return &gaerrors.ConfigError{
			Field:   "timeout",
			Value:   c.ConnectTimeout,
			Message: "must not be negative",
		}
	}
	if c.IdleWorkerTimeout <= 0 {
		return &gaerrors.ConfigError{
			Field:   "idle-worker-timeout",
			Value:   c.IdleWorkerTimeout,
			Message: "must be positive",
		}
	}
	if _, err := c.Encoding(); err != nil {
		return err
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return &gaerrors.ConfigError{
				Field:   "metrics-addr",
				Value:   c.MetricsAddr,
				Message: "not a host:port",
				Hint:    "e.g. 127.0.0.1:9090",
			}
		}
	}
	return nil
}
