package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/internal/database"
	"github.com/pageza/recipe-catalog/backend/internal/logger"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "migrations", "Directory holding the SQL migrations")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	l := logger.Must(logger.Config{Level: "info", Format: "console"})
	defer l.Sync()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		l.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	if *rollback {
		name, err := database.RollbackLast(ctx, db, *dir, l)
		if errors.Is(err, database.ErrNoMigrations) {
			l.Info("no migrations to rollback")
			return
		}
		if err != nil {
			l.Fatal("rollback failed", zap.Error(err))
		}
		l.Info("rolled back migration", zap.String("name", name))
		return
	}

	if err := database.ApplySQLMigrations(ctx, db, *dir, l); err != nil {
		l.Fatal("migration failed", zap.Error(err))
	}
	l.Info("migrations applied")
}
