package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/app"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/config"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/httpapi"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/hub"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/logging"
)

func main() {
	envPath := config.LoadDotenv()
	cfg, cfgErr := config.FromEnv()

	addr := flag.String("addr", cfg.HTTPAddr, "listen address")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	if envPath != "" {
		logger.Info("loaded .env", zap.String("path", envPath))
	}
	if cfgErr != nil {
		logger.Warn("configuration", zap.Error(cfgErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	deps := httpapi.Deps{Parser: a.Parser, Logger: logger}
	if a.Store != nil {
		deps.Reports = a.Store
	}
	if a.Pipeline != nil {
		h := hub.NewHub(ctx, a.Pipeline, cfg.SyncInterval, logger)
		defer h.Close()
		deps.Sync = h
		deps.Feed = h
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
	}
}
