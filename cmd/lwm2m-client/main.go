// Command lwm2m-client runs the LWM2M client data layer.
//
// The transport process writes request lines ("/{command}:{base64}") to
// stdin and reads response lines ("/resp:{command}:{base64}") from stdout.
// Operational logs go to stderr.
//
// Usage:
//
//	lwm2m-client [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-log-level string   Log level: debug, info, warn, error (overrides config)
//	-metrics string     Prometheus listen address, e.g. :9090 (overrides config)
//	-interactive        Start a debug console instead of the stdin transport
//
// Examples:
//
//	# Serve a transport on stdin/stdout
//	lwm2m-client -config /etc/lwm2m/client.yaml
//
//	# Inspect the object tree by hand
//	lwm2m-client -config client.yaml -interactive
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lwm2m-go/lwm2m-client/cmd/lwm2m-client/interactive"
	"github.com/lwm2m-go/lwm2m-client/pkg/client"
	"github.com/lwm2m-go/lwm2m-client/pkg/config"
	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/metrics"
)

var (
	configFile      string
	logLevel        string
	metricsAddr     string
	interactiveMode bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&metricsAddr, "metrics", "", "Prometheus listen address, e.g. :9090")
	flag.BoolVar(&interactiveMode, "interactive", false, "Start a debug console instead of the stdin transport")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lwm2m-client: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)

	plog, closeLog, err := protocolLogger(cfg.Log, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New(metrics.DefaultNamespace)
	}

	c := client.New(cfg, client.Options{
		Logger:         logger,
		ProtocolLogger: plog,
		Metrics:        m,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if m != nil {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := c.Close(closeCtx); err != nil {
			logger.Warn("close client", "error", err)
		}
	}()

	if interactiveMode {
		sh, err := interactive.New(c)
		if err != nil {
			return err
		}
		sh.Run(ctx, cancel)
		return nil
	}

	err = c.Run(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// protocolLogger returns the protocol event sink: a CBOR capture file when
// configured, mirrored to the operational log at debug level.
func protocolLogger(cfg config.LogConfig, logger *slog.Logger) (log.Logger, func(), error) {
	var sinks []log.Logger
	closeFn := func() {}

	if cfg.ProtocolFile != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() {
			if err := fl.Err(); err != nil {
				logger.Warn("protocol log incomplete", "path", fl.Path(), "error", err)
			}
			logger.Info("protocol log closed", "path", fl.Path(), "events", fl.Events())
			_ = fl.Close()
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}
	return log.Combine(sinks...), closeFn, nil
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
