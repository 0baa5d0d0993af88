package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overlays environment variables onto cfg.  Only set env
// vars override the existing value.  This should be called BEFORE CLI
// flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GREYS_BIND"); v != "" {
		cfg.BindAddr = v
	}
	if v := envInt("GREYS_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("GREYS_TIMEOUT"); v > 0 {
		cfg.ConnectTimeout = time.Duration(v) * time.Second
	}
	if v := os.Getenv("GREYS_CHARSET"); v != "" {
		cfg.Charset = v
	}
	if v := os.Getenv("GREYS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envInt("GREYS_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if v := envInt("GREYS_IDLE_WORKER_TIMEOUT"); v > 0 {
		cfg.IdleWorkerTimeout = time.Duration(v) * time.Second
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
