package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/bootstrap"
	"github.com/pageza/recipe-catalog/backend/internal/metrics"
	"github.com/pageza/recipe-catalog/backend/internal/server"
	"github.com/pageza/recipe-catalog/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := bootstrap.Logger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := bootstrap.Catalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.Error(err))
	}
	defer bootstrap.Close(db)

	rdb, err := bootstrap.Redis(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	content, err := bootstrap.ContentStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to configure content store", zap.Error(err))
	}

	srv := server.New(cfg, server.Dependencies{
		DB:      db,
		Redis:   rdb,
		Content: content,
		LLM:     service.NewLLMService(cfg.LLM, logger),
		Metrics: metrics.NewCollector(),
	}, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
