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

	if cfg.LLM.APIKey == "" {
		logger.Fatal("LLM_API_KEY is required for catalog augmentation")
	}

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

	augmenter := service.NewBatchAugmenter(
		service.NewCatalogStore(db, cfg.Catalog.SearchLimit),
		service.NewLLMService(cfg.LLM, logger),
		cfg.Batch,
		logger,
	)
	stats, err := augmenter.Run(ctx, os.DirFS(corpus))
	if err != nil {
		// an interrupted run keeps everything written so far; rerunning resumes
		logger.Error("augmentation stopped", zap.Error(err), zap.Int("analyzed", stats.Analyzed))
		os.Exit(1)
	}
}
