package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hsdfat8/pgw-gw/internal/config"
	"github.com/hsdfat8/pgw-gw/pkg/logger"
	"github.com/hsdfat8/pgw-gw/server"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml/json)")
	logLevel := flag.String("log-level", "", "Override configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Log.Errorw("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger.SetLevel(cfg.LogLevel)

	logger.Log.Infow("Starting PGW gateway",
		"udp_ip", cfg.UDPIP,
		"udp_port", cfg.UDPPort,
		"http_port", cfg.HTTPPort,
		"session_timeout_sec", cfg.SessionTimeoutSec,
		"graceful_shutdown_rate", cfg.GracefulShutdownRate,
		"blacklist_size", len(cfg.Blacklist))

	srv := server.New(cfg)
	defer srv.Close()

	// Signals only request the stop; the server instance owns the
	// shutdown sequence.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Log.Infow("Signal received, requesting server stop", "signal", sig.String())
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		logger.Log.Errorw("Server failed", "error", err)
		os.Exit(1)
	}

	logger.Log.Infow("Shutdown complete")
}
