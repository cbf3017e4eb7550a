package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/model"
)

// FallbackTag labels entries whose metadata came from the heading scanner
const FallbackTag = "家常菜"

// BatchStats summarizes an augmentation run
type BatchStats struct {
	Scanned  int
	Skipped  int
	Analyzed int
	Fallback int
	Failed   int
}

// BatchAugmenter fills in structured metadata for corpus entries. Runs are
// resumable: entries that already have ingredients are skipped.
type BatchAugmenter struct {
	catalog    CatalogStore
	llm        Completer
	normalizer *IngredientNormalizer
	cfg        config.BatchConfig
	pacer      *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
}

// NewBatchAugmenter creates a new BatchAugmenter
func NewBatchAugmenter(catalog CatalogStore, llm Completer, cfg config.BatchConfig, logger *zap.Logger) *BatchAugmenter {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.ContentRunes <= 0 {
		cfg.ContentRunes = 1500
	}

	limit := rate.Inf
	if cfg.Pacing > 0 {
		limit = rate.Every(cfg.Pacing)
	}

	return &BatchAugmenter{
		catalog:    catalog,
		llm:        llm,
		normalizer: NewIngredientNormalizer(),
		cfg:        cfg,
		pacer:      rate.NewLimiter(limit, 1),
		sleep:      sleepContext,
		logger:     logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func analysisInstruction(name, content string) string {
	return fmt.Sprintf(`分析菜谱《%s》。内容：%s...
请提取以下信息并以纯 JSON 对象格式返回：
{
  "main_ingredients": ["食材1", "食材2"],
  "tags": ["标签1", "标签2"],
  "difficulty": 3,
  "calories": 500
}
注意：main_ingredients 只列出核心食材。`, name, content)
}

// Run augments every document under fsys. Per-item failures are logged and the
// run continues; only cancellation stops it early.
func (a *BatchAugmenter) Run(ctx context.Context, fsys fs.FS) (BatchStats, error) {
	docs, err := ScanCorpus(fsys, a.logger)
	if err != nil {
		return BatchStats{}, err
	}

	stats := BatchStats{Scanned: len(docs)}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		log := a.logger.With(zap.String("name", doc.Name), zap.Int("index", i+1), zap.Int("total", len(docs)))

		if existing, err := a.catalog.FindByName(ctx, doc.Name); err == nil && augmented(existing) {
			stats.Skipped++
			continue
		}

		if err := a.pacer.Wait(ctx); err != nil {
			return stats, err
		}

		data, err := fs.ReadFile(fsys, doc.Ref)
		if err != nil {
			log.Warn("failed to read document", zap.Error(err))
			stats.Failed++
			continue
		}
		content := string(data)

		entry := &model.CatalogEntry{
			Name:       doc.Name,
			Category:   doc.Category,
			ContentRef: doc.Ref,
		}

		meta, ok := a.analyze(ctx, doc.Name, content, log)
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ingredients := SanitizeIngredients(meta.MainIngredients, model.MaxIngredientRunes)
		if ok && len(ingredients) > 0 {
			entry.Ingredients = ingredients
			entry.Tags = cleanTags(meta.Tags)
			if len(entry.Tags) == 0 {
				entry.Tags = model.JSONBStringArray{FallbackTag}
			}
			entry.Difficulty = clampDifficulty(meta.Difficulty)
			entry.EstimatedCalories = nonNegative(meta.Calories)
			stats.Analyzed++
		} else {
			log.Info("falling back to heading scan")
			entry.Ingredients = a.normalizer.Extract(content)
			entry.Tags = model.JSONBStringArray{FallbackTag}
			entry.Difficulty = defaultDifficulty
			stats.Fallback++
		}

		if err := a.catalog.Upsert(ctx, entry); err != nil {
			log.Error("failed to persist entry", zap.Error(err))
			stats.Failed++
		}
	}

	a.logger.Info("augmentation finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("skipped", stats.Skipped),
		zap.Int("analyzed", stats.Analyzed),
		zap.Int("fallback", stats.Fallback),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// augmented reports whether a previous run already wrote metadata for e. The
// importer leaves tags empty; both augmentation paths always write at least one.
func augmented(e *model.CatalogEntry) bool {
	return len(e.Tags) > 0
}

// analyze asks for metadata with retries. A reply without usable JSON is not retried.
func (a *BatchAugmenter) analyze(ctx context.Context, name, content string, log *zap.Logger) (GeneratedMeta, bool) {
	instruction := analysisInstruction(name, truncate(content, a.cfg.ContentRunes))

	for attempt := 1; attempt <= a.cfg.Attempts; attempt++ {
		raw, err := a.llm.CompleteStructured(ctx, instruction)
		if err == nil {
			var meta GeneratedMeta
			if err := json.Unmarshal(raw, &meta); err != nil {
				log.Warn("malformed analysis payload", zap.Error(err))
				return GeneratedMeta{}, false
			}
			return meta, true
		}
		if errors.Is(err, ErrMalformedPayload) {
			log.Warn("malformed analysis payload", zap.Error(err))
			return GeneratedMeta{}, false
		}

		delay := a.cfg.RetryDelay
		if errors.Is(err, ErrRateLimited) {
			delay = a.cfg.RateLimitDelay
		}
		log.Warn("analysis attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if attempt == a.cfg.Attempts {
			break
		}
		if err := a.sleep(ctx, delay); err != nil {
			return GeneratedMeta{}, false
		}
	}
	return GeneratedMeta{}, false
}
