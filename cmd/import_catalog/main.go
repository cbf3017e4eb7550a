package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/bootstrap"
	"github.com/pageza/recipe-catalog/backend/internal/service"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "Clear the catalog before importing")
	root := flag.String("root", "", "Corpus directory (defaults to the configured content root)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := bootstrap.Logger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.Catalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.Error(err))
	}
	defer bootstrap.Close(db)

	corpus := cfg.Content.Root
	if *root != "" {
		corpus = *root
	}
	logger.Info("importing corpus", zap.String("root", corpus), zap.Bool("rebuild", *rebuild))

	store := service.NewCatalogStore(db, cfg.Catalog.SearchLimit)
	stats, err := service.NewImporter(store, cfg.Batch.Workers, logger).Import(ctx, os.DirFS(corpus), *rebuild)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	if stats.Failed > 0 {
		logger.Warn("some documents were not imported", zap.Int("failed", stats.Failed))
	}
}
