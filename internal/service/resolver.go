package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pageza/recipe-catalog/backend/internal/metrics"
	"github.com/pageza/recipe-catalog/backend/internal/model"
)

// ResolverConfig bounds generation on the search path
type ResolverConfig struct {
	// MaxQueryRunes is the exclusive upper bound on query length for generation
	MaxQueryRunes    int
	GenerationWait   time.Duration
	LockTTL          time.Duration
	LockPollInterval time.Duration
}

// DefaultResolverConfig returns the production defaults
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxQueryRunes:    20,
		GenerationWait:   45 * time.Second,
		LockTTL:          60 * time.Second,
		LockPollInterval: 500 * time.Millisecond,
	}
}

// SearchResolver answers catalog searches and falls back to generation on a miss.
// At most one generation per name is in flight in this process; the Locker
// extends that across instances.
type SearchResolver struct {
	catalog   CatalogStore
	generator Generator
	locker    Locker
	cfg       ResolverConfig
	group     singleflight.Group
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewSearchResolver creates a new SearchResolver. A nil locker means in-process coordination only.
func NewSearchResolver(catalog CatalogStore, generator Generator, locker Locker, cfg ResolverConfig, logger *zap.Logger, m *metrics.Collector) *SearchResolver {
	defaults := DefaultResolverConfig()
	if cfg.MaxQueryRunes <= 0 {
		cfg.MaxQueryRunes = defaults.MaxQueryRunes
	}
	if cfg.GenerationWait <= 0 {
		cfg.GenerationWait = defaults.GenerationWait
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.LockPollInterval <= 0 {
		cfg.LockPollInterval = defaults.LockPollInterval
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	return &SearchResolver{
		catalog:   catalog,
		generator: generator,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}
}

// AcceptsGeneration reports whether q is long enough, and short enough, to generate for
func (r *SearchResolver) AcceptsGeneration(q string) bool {
	n := utf8.RuneCountInString(q)
	return n > 1 && n < r.cfg.MaxQueryRunes
}

// Resolve returns the catalog hits for q. When nothing matches and q is within
// the generation bounds, a newly generated entry is returned instead. Generation
// failures yield an empty result; only a failed catalog read is an error.
func (r *SearchResolver) Resolve(ctx context.Context, q string) ([]model.CatalogEntry, error) {
	if q == "" {
		return []model.CatalogEntry{}, nil
	}

	hits, err := r.catalog.FindByQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		r.metrics.RecordSearch(metrics.SearchHit)
		return hits, nil
	}

	if !r.AcceptsGeneration(q) {
		r.metrics.RecordSearch(metrics.SearchMiss)
		return []model.CatalogEntry{}, nil
	}

	entry, err := r.Generate(ctx, q)
	if err != nil {
		r.logger.Info("search miss without generated entry", zap.String("query", q), zap.Error(err))
		r.metrics.RecordSearch(metrics.SearchMiss)
		return []model.CatalogEntry{}, nil
	}

	r.metrics.RecordSearch(metrics.SearchGenerated)
	return []model.CatalogEntry{*entry}, nil
}

// Generate returns the catalog entry for name, synthesizing it if needed.
// Concurrent callers for the same name share one generation.
func (r *SearchResolver) Generate(ctx context.Context, name string) (*model.CatalogEntry, error) {
	// no single caller may cancel the shared flight
	flightCtx := context.WithoutCancel(ctx)

	ch := r.group.DoChan(name, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(flightCtx, r.cfg.GenerationWait)
		defer cancel()
		return r.generate(ctx, name)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.metrics.RecordSharedGeneration()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		entry := *res.Val.(*model.CatalogEntry)
		return &entry, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *SearchResolver) generate(ctx context.Context, name string) (*model.CatalogEntry, error) {
	log := r.logger.With(zap.String("name", name))

	// an earlier flight may have finished between the caller's miss and now
	if entry, err := r.existing(ctx, name); entry != nil || err != nil {
		return entry, err
	}

	release, err := r.locker.TryLock(ctx, "generate:"+name, r.cfg.LockTTL)
	if err != nil {
		log.Warn("generation lock unavailable, continuing without it", zap.Error(err))
		release = func() {}
	}
	if release == nil {
		log.Debug("generation in progress elsewhere, waiting for entry")
		return r.awaitEntry(ctx, name)
	}
	defer release()

	if entry, err := r.existing(ctx, name); entry != nil || err != nil {
		return entry, err
	}

	entry, err := r.generator.Synthesize(ctx, name)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrGenerationUnavailable
	}
	return entry, nil
}

// existing returns the entry named name, or nil when there is none. Any other
// catalog failure is returned so no generation is spent on a broken store.
func (r *SearchResolver) existing(ctx context.Context, name string) (*model.CatalogEntry, error) {
	entry, err := r.catalog.FindByName(ctx, name)
	if err == nil {
		return entry, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// awaitEntry polls the catalog until another instance persists name or ctx expires
func (r *SearchResolver) awaitEntry(ctx context.Context, name string) (*model.CatalogEntry, error) {
	ticker := time.NewTicker(r.cfg.LockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for %s: %v", ErrGenerationUnavailable, name, ctx.Err())
		case <-ticker.C:
			entry, err := r.catalog.FindByName(ctx, name)
			if err == nil {
				return entry, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
	}
}
