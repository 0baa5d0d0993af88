// Package cmd wires up the CLI flags and runs the server until the
// process is signalled.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/zogwei/greys-anatomy/config"
	"github.com/zogwei/greys-anatomy/internal/command"
	"github.com/zogwei/greys-anatomy/internal/metrics"
	"github.com/zogwei/greys-anatomy/internal/server"
	"github.com/zogwei/greys-anatomy/internal/session"
	"github.com/zogwei/greys-anatomy/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X github.com/zogwei/greys-anatomy/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args, binds the server, and blocks until ctx is done,
// then runs the shutdown sequence.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg) // flags override env, env overrides defaults

	fs := flag.NewFlagSet("greys", flag.ContinueOnError)

	// ── listener ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.BindAddr, "bind", "b", cfg.BindAddr, "Bind address")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Listen port")

	timeoutSec := int(cfg.ConnectTimeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Greeting write timeout in seconds")

	// ── protocol ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.Charset, "charset", "c", cfg.Charset, "IANA charset for new sessions")

	// ── observability ────────────────────────────────────────────
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr,
		"Serve Prometheus metrics on this host:port (empty = disabled)")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("greys %s\n", version)
		return nil
	}
	cfg.ConnectTimeout = time.Duration(timeoutSec) * time.Second

	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose + 1) // a server defaults to normal, not quiet
	collector := metrics.New()
	registry := session.NewRegistry(logger, collector)
	handler := command.NewDiagnosticHandler(logger, collector, version)
	srv := server.New(cfg, logger, registry, handler, collector)

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, collector, logger.Named("metrics"))
		defer stopMetrics()
	}

	if err := srv.Bind(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("signal received, shutting down")
	srv.Shutdown()
	return nil
}

// serveMetrics exposes /metrics on addr and returns a stop function.
func serveMetrics(addr string, collector *metrics.Collector, logger *util.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(collector))
	msrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Verbose("serving http://%s/metrics", addr)
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server: %v", err)
		}
	}()
	return func() { util.CloseQuietly(msrv) }
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `greys %s - interactive diagnosis server for Go processes

Usage:
  greys [options]

The server speaks a plain-text line protocol: one command per line,
'\n' terminated.  Ctrl-D or Ctrl-X cancels the running command.

Options:
%s
Environment:
  GREYS_BIND, GREYS_PORT, GREYS_TIMEOUT, GREYS_CHARSET,
  GREYS_METRICS_ADDR, GREYS_VERBOSE, GREYS_IDLE_WORKER_TIMEOUT
  (flags take precedence)
`, version, fs.FlagUsages())
}
