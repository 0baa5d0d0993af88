package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultBindAddr keeps the server local-only unless told
	// otherwise; the protocol is unauthenticated by design.
	DefaultBindAddr = "127.0.0.1"

	// DefaultPort is the diagnosis port.
	DefaultPort = 3658

	// DefaultConnectTimeout bounds the banner/prompt write to a newly
	// accepted client.
	DefaultConnectTimeout = 60 * time.Second

	// DefaultCharset is the session charset when none is negotiated.
	DefaultCharset = "utf-8"

	// DefaultIdleWorkerTimeout is how long a dispatch worker may sit
	// idle before it is reaped.
	DefaultIdleWorkerTimeout = 60 * time.Second
)

// Default returns a Config populated with the defaults above.
func Default() *Config {
	return &Config{
		BindAddr:          DefaultBindAddr,
		Port:              DefaultPort,
		ConnectTimeout:    DefaultConnectTimeout,
		Charset:           DefaultCharset,
		IdleWorkerTimeout: DefaultIdleWorkerTimeout,
	}
}
