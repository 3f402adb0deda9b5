package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fractalscope/fractalscope/server/internal/api"
	"github.com/fractalscope/fractalscope/server/internal/calibration"
	"github.com/fractalscope/fractalscope/server/internal/config"
	"github.com/fractalscope/fractalscope/server/internal/metrics"
	"github.com/fractalscope/fractalscope/server/internal/ws"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the UI static files from this directory (e.g. ui/dist); overrides server.ui_dir")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("fractalscope-server starting", "config", *configPath, "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *uiDir != "" {
		cfg.Server.UIDir = *uiDir
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"threshold", cfg.Server.Estimator.Threshold,
		"live_enabled", cfg.Server.Live.Enabled,
		"ui_dir", cfg.Server.UIDir,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cal, err := calibration.New(cfg.Server.Estimator)
	if err != nil {
		slog.Error("invalid estimator config", "err", err)
		os.Exit(1)
	}
	rec := metrics.New(cal.Current().Threshold())
	cal.OnChange(func(s calibration.Snapshot) {
		rec.ObserveReload(s.Estimator.Threshold())
		slog.Info("threshold reloaded", "threshold", s.Estimator.Threshold(), "version", s.Version)
	})

	// Only the threshold is applied on reload; ports and paths need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			if _, err := cal.Set(next.Server.Estimator); err != nil {
				slog.Warn("config: reload rejected", "err", err)
			}
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	var hub *ws.Hub
	if cfg.Server.Live.Enabled {
		hub = ws.New(cal, rec, cfg.Server.Live.MaxClients)
		rec.TrackLiveClients(hub.Count)
		go hub.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: newMux(api.New(cal, rec, version), hub, rec, cfg.Server.UIDir),
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("fractalscope-server shutting down", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "err", err)
	}
}
