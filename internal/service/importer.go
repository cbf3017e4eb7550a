package service

import (
	"context"
	"io/fs"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/recipe-catalog/backend/internal/model"
)

// ImportStats summarizes a corpus import
type ImportStats struct {
	Scanned  int
	Imported int
	Failed   int
}

// Importer loads a markdown recipe corpus into the catalog
type Importer struct {
	catalog    CatalogStore
	normalizer *IngredientNormalizer
	workers    int
	logger     *zap.Logger
}

// NewImporter creates a new Importer
func NewImporter(catalog CatalogStore, workers int, logger *zap.Logger) *Importer {
	if workers <= 0 {
		workers = 1
	}
	return &Importer{
		catalog:    catalog,
		normalizer: NewIngredientNormalizer(),
		workers:    workers,
		logger:     logger,
	}
}

// Import upserts one entry per corpus document. With rebuild the catalog is
// cleared first. Unreadable files and failed writes are logged and counted.
func (im *Importer) Import(ctx context.Context, fsys fs.FS, rebuild bool) (ImportStats, error) {
	docs, err := ScanCorpus(fsys, im.logger)
	if err != nil {
		return ImportStats{}, err
	}

	if rebuild {
		im.logger.Info("clearing catalog before import")
		if err := im.catalog.Clear(ctx); err != nil {
			return ImportStats{}, err
		}
	}

	var imported, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := im.importOne(gctx, fsys, doc); err != nil {
				im.logger.Warn("import failed", zap.String("ref", doc.Ref), zap.Error(err))
				failed.Add(1)
				return nil
			}
			imported.Add(1)
			return nil
		})
	}
	err = g.Wait()

	stats := ImportStats{
		Scanned:  len(docs),
		Imported: int(imported.Load()),
		Failed:   int(failed.Load()),
	}
	im.logger.Info("import finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("imported", stats.Imported),
		zap.Int("failed", stats.Failed),
	)
	return stats, err
}

func (im *Importer) importOne(ctx context.Context, fsys fs.FS, doc CorpusDocument) error {
	data, err := fs.ReadFile(fsys, doc.Ref)
	if err != nil {
		return err
	}

	entry := &model.CatalogEntry{
		Name:        doc.Name,
		Category:    doc.Category,
		ContentRef:  doc.Ref,
		Ingredients: im.normalizer.Extract(string(data)),
		Tags:        model.JSONBStringArray{},
		Difficulty:  defaultDifficulty,
	}
	return im.catalog.Upsert(ctx, entry)
}
