package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sangdi-IT/yq-monitor/internal/adapters/browser"
	"github.com/Sangdi-IT/yq-monitor/internal/adapters/storage/files"
	"github.com/Sangdi-IT/yq-monitor/internal/adapters/storage/memory"
	"github.com/Sangdi-IT/yq-monitor/internal/agent"
	"github.com/Sangdi-IT/yq-monitor/internal/capture"
	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	"github.com/Sangdi-IT/yq-monitor/internal/export"
	cfgpkg "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/config"
	httpapi "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/httpapi"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
	"github.com/Sangdi-IT/yq-monitor/internal/usecase"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the feed page in Chrome and serve the control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := serveConfigPath
		if path == "" {
			path = os.Getenv("CONFIG_FILE")
		}
		cfg, err := cfgpkg.Load(path)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "YAML config file (env CONFIG_FILE)")
}

func serve(cfg cfgpkg.Config) error {
	level := cfg.LogLevel
	if cfg.DevMode {
		level = "debug"
	}
	logger := obs.NewLogger(level)
	logger.Info().Str("addr", cfg.Addr).Str("version", obs.Version).Msg("starting yq-monitor")

	metrics := obs.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := capture.NewRecorder(cfg.URLKeyword, logger, metrics)
	sess := browser.New(ctx, cfg, func(ex domain.CapturedExchange) { recorder.Observe(ex) }, logger)
	defer sess.Close()

	if err := sess.Open(ctx); err != nil {
		return err
	}
	// observe network from the start so capture works without the click loop
	if err := sess.EnableNetwork(ctx); err != nil {
		logger.Error().Err(err).Msg("enable network capture failed")
	}

	hub := httpapi.NewMonitorHub()
	ag := agent.New(sess, agent.Options{
		Inspector: sess,
		Notifier:  hub,
		Interval:  time.Duration(cfg.ClickIntervalMs) * time.Millisecond,
		Logger:    logger,
		Metrics:   metrics,
	})
	store := memory.NewStore(cfg.ExportHistoryMax, 24*time.Hour)
	svc := usecase.NewService(ctx, usecase.Components{
		Recorder:  recorder,
		Agent:     ag,
		Exporter:  export.NewExporter(files.NewDirSaver(cfg.OutputDir), recorder.Keyword(), logger, metrics),
		HARSource: sess,
		History:   store,
		Logger:    logger,
	})
	deps := &httpapi.Deps{Cfg: cfg, Logger: logger, Metrics: metrics, Svc: svc, Monitor: hub}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouterWithDeps(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	ag.Stop()
	stop()
	select {
	case <-ag.Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("click loop did not exit in time")
	}
	logger.Info().Msg("yq-monitor stopped")
	return serveErr
}
