package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/internal/metrics"
)

const (
	// DefaultPantryLimit caps the number of pantry match results
	DefaultPantryLimit = 20
	// DefaultMaxMissing is the largest missing-ingredient count still included
	DefaultMaxMissing = 3
)

// MatchResult is one ranked pantry match
type MatchResult struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Score    int      `json:"score"`
	Missing  []string `json:"missing"`
	Tags     []string `json:"tags"`
}

// MatchEngine ranks catalog entries against a set of available ingredients
type MatchEngine struct {
	catalog    CatalogStore
	maxMissing int
	limit      int
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// NewMatchEngine creates a new MatchEngine. Non-positive limit or negative maxMissing use the defaults.
func NewMatchEngine(catalog CatalogStore, maxMissing, limit int, logger *zap.Logger, m *metrics.Collector) *MatchEngine {
	if maxMissing < 0 {
		maxMissing = DefaultMaxMissing
	}
	if limit <= 0 {
		limit = DefaultPantryLimit
	}
	return &MatchEngine{
		catalog:    catalog,
		maxMissing: maxMissing,
		limit:      limit,
		logger:     logger,
		metrics:    m,
	}
}

// ParsePantry splits a comma separated ingredient list. Both ASCII and full-width
// commas separate items; items are trimmed and duplicates collapsed.
func ParsePantry(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，'
	})
	seen := make(map[string]struct{}, len(fields))
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		items = append(items, f)
	}
	return items
}

// Score returns round(hits/n*100) with halves rounded up
func Score(hits, n int) int {
	if n <= 0 {
		return 0
	}
	return (hits*200 + n) / (2 * n)
}

// ingredientAvailable reports a containment match in either direction
func ingredientAvailable(ingredient string, available []string) bool {
	for _, a := range available {
		if strings.Contains(ingredient, a) || strings.Contains(a, ingredient) {
			return true
		}
	}
	return false
}

// Match scans the whole catalog and returns entries sorted by score descending.
// Equal scores keep catalog scan order.
func (e *MatchEngine) Match(ctx context.Context, available []string) ([]MatchResult, error) {
	results := []MatchResult{}
	if len(available) == 0 {
		return results, nil
	}

	start := time.Now()
	entries, err := e.catalog.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		n := len(entry.Ingredients)
		if n == 0 {
			continue
		}

		hits := 0
		missing := []string{}
		for _, ing := range entry.Ingredients {
			if ingredientAvailable(ing, available) {
				hits++
			} else {
				missing = append(missing, ing)
			}
		}
		if hits == 0 || len(missing) > e.maxMissing {
			continue
		}

		tags := []string(entry.Tags)
		if tags == nil {
			tags = []string{}
		}
		results = append(results, MatchResult{
			Name:     entry.Name,
			Category: entry.Category,
			Score:    Score(hits, n),
			Missing:  missing,
			Tags:     tags,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > e.limit {
		results = results[:e.limit]
	}

	e.metrics.ObservePantry(time.Since(start), len(results))
	e.logger.Debug("pantry match",
		zap.Int("available", len(available)),
		zap.Int("scanned", len(entries)),
		zap.Int("results", len(results)),
	)
	return results, nil
}
