// Package bootstrap builds the resources shared by the server and the offline catalog tools
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/database"
	"github.com/pageza/recipe-catalog/backend/internal/logger"
	"github.com/pageza/recipe-catalog/backend/internal/service"
)

// Logger builds the process logger from the app configuration
func Logger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: config.GetEnvironment() == config.Development,
	})
}

// Catalog opens the catalog database and brings its schema up to date
func Catalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsDir, log); err != nil {
		Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close releases the pooled connections behind db
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Redis connects when a URL is configured. A nil client means single-instance mode.
func Redis(cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		log.Info("redis not configured, generation coordination is process-local")
		return nil, nil
	}
	return database.NewRedisClient(cfg.Redis.URL, log)
}

// ContentStore selects the document body store for the configured provider
func ContentStore(ctx context.Context, cfg *config.Config) (service.ContentStore, error) {
	switch cfg.Content.Provider {
	case "local":
		return service.NewFileContentStore(cfg.Content.Root), nil
	case "s3":
		s3cfg, err := config.NewS3Config(ctx, cfg.Content)
		if err != nil {
			return nil, err
		}
		return service.NewS3ContentStore(s3cfg.Client, s3cfg.BucketName, s3cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported content provider %q", cfg.Content.Provider)
	}
}
