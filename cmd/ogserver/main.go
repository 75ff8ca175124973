// Command ogserver runs the agent/REST-client bridge server. Flags and
// startup sequencing are grounded on the teacher's cmd/server/main.go:
// pflag for CLI parsing, slog+tint for colorized logs, a Prometheus
// /metrics endpoint, and signal.NotifyContext for shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/javsanpar/ogServer/internal/ogconfig"
	"github.com/javsanpar/ogServer/internal/ogdb"
	"github.com/javsanpar/ogServer/internal/ogmetrics"
	"github.com/javsanpar/ogServer/internal/server"
)

// Set by LDFLAGS
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.StringP("config", "f", "", "path to config file")
		logPath    = pflag.StringP("logfile", "l", "", "path to log file (default stderr)")
		logLevel   = pflag.StringP("level", "d", "info", "log level: debug, info, warn, error")
	)
	pflag.Parse()
	if len(pflag.Args()) > 0 {
		return fmt.Errorf("unrecognized arguments: %v", pflag.Args())
	}

	logger, closeLog, err := newLogger(*logPath, *logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	cfgFile := ogconfig.File{}
	if *configPath != "" {
		cfgFile, err = ogconfig.Load(*configPath)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := ogdb.OpenPostgres(ctx, ogdb.PostgresConfig{
		Host:     cfgFile.Get("dbhost", ""),
		Port:     cfgFile.Get("dbport", ""),
		Database: cfgFile.Get("dbname", ""),
		Username: cfgFile.Get("dbuser", ""),
		Password: cfgFile.Get("dbpass", ""),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close(context.Background())

	srv, err := server.New(server.Config{
		Logger:    logger,
		RESTAddr:  cfgFile.Get("restaddr", ":8080"),
		AgentAddr: cfgFile.Get("agentaddr", ":8081"),
		DB:        db,
	})
	if err != nil {
		return err
	}

	if metricsAddr := cfgFile.Get("metricsaddr", ":9090"); metricsAddr != "" {
		ogmetrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go serveMetrics(logger, metricsAddr)
	}

	logger.Info("starting ogserver",
		"rest_addr", cfgFile.Get("restaddr", ":8080"),
		"agent_addr", cfgFile.Get("agentaddr", ":8081"))

	return srv.Run(ctx)
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", "err", err)
	}
}

func newLogger(logPath, level string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	out := os.Stderr
	closeFn := func() {}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	handler := tint.NewHandler(out, &tint.Options{Level: lvl})
	return slog.New(handler), closeFn, nil
}
