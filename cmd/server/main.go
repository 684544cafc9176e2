package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/logging"
	"github.com/BioHazard786/rendezvous/internal/metrics"
	"github.com/BioHazard786/rendezvous/internal/registry"
	"github.com/BioHazard786/rendezvous/internal/server"
	"github.com/BioHazard786/rendezvous/internal/signaling"
	"github.com/BioHazard786/rendezvous/internal/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	for _, a := range args {
		if a == "-version" || a == "--version" {
			fmt.Println(version.Get())
			return nil
		}
	}

	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := signaling.NewHub(registry.New[*signaling.Client](), metrics.New(reg), logger, signaling.Config{
		PingInterval:    cfg.PingInterval,
		PongWait:        cfg.PingTimeout,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		SendQueueSize:   cfg.SendQueueSize,
	})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	info := version.Get()
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.NewRouter(server.Options{
			Hub:            hub,
			Logger:         logger,
			AllowedOrigins: cfg.AllowedOrigins,
			Gatherer:       reg,
			Version:        info,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting signaling server",
			"addr", cfg.Addr(),
			"version", info.String(),
			"env", cfg.Env,
			"config_file", cfg.ConfigFile,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "err", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown; stopping the
	// hub closes them.
	stopHub()
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
	}

	logger.Info("Shutdown complete")
	return nil
}
