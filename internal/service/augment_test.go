package service

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/mocks"
	"github.com/pageza/recipe-catalog/backend/internal/model"
	"github.com/pageza/recipe-catalog/backend/internal/testhelpers"
)

type augmentFixture struct {
	store  *GormCatalogStore
	llm    *mocks.MockCompleter
	aug    *BatchAugmenter
	sleeps []time.Duration
}

func newAugmentFixture(t *testing.T) *augmentFixture {
	f := &augmentFixture{
		store: NewCatalogStore(testhelpers.SetupTestDB(t), 0),
		llm:   new(mocks.MockCompleter),
	}
	f.aug = NewBatchAugmenter(f.store, f.llm, config.BatchConfig{
		Attempts:       3,
		RetryDelay:     5 * time.Second,
		RateLimitDelay: 30 * time.Second,
		ContentRunes:   1500,
	}, zap.NewNop())
	f.aug.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func singleDishCorpus() fstest.MapFS {
	return fstest.MapFS{
		"meat_dish/红烧肉.md": {Data: []byte("# 红烧肉\n\n## 原料\n\n- 五花肉\n- 冰糖\n")},
	}
}

func TestBatchAugmenterAnalyzes(t *testing.T) {
	f := newAugmentFixture(t)
	ctx := context.Background()

	f.llm.On("CompleteStructured", ctx, mock.MatchedBy(func(s string) bool {
		return assert.Contains(t, s, "《红烧肉》")
	})).Return(`{"main_ingredients": ["五花肉", "冰糖", "老抽"], "tags": ["下饭"], "difficulty": 4, "calories": 650}`, nil)

	stats, err := f.aug.Run(ctx, singleDishCorpus())
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Scanned: 1, Analyzed: 1}, stats)

	entry, err := f.store.FindByName(ctx, "红烧肉")
	require.NoError(t, err)
	assert.Equal(t, model.JSONBStringArray{"五花肉", "冰糖", "老抽"}, entry.Ingredients)
	assert.Equal(t, model.JSONBStringArray{"下饭"}, entry.Tags)
	assert.Equal(t, 4, entry.Difficulty)
	assert.Equal(t, 650, entry.EstimatedCalories)
	assert.Equal(t, "meat_dish/红烧肉.md", entry.ContentRef)
}

func TestBatchAugmenterRetriesThenFallsBack(t *testing.T) {
	f := newAugmentFixture(t)
	ctx := context.Background()

	f.llm.On("CompleteStructured", ctx, mock.Anything).Return(nil, ErrRateLimited).Once()
	f.llm.On("CompleteStructured", ctx, mock.Anything).Return(nil, fmt.Errorf("%w: timeout", ErrGenerationUnavailable)).Twice()

	stats, err := f.aug.Run(ctx, singleDishCorpus())
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Scanned: 1, Fallback: 1}, stats)
	assert.Equal(t, []time.Duration{30 * time.Second, 5 * time.Second}, f.sleeps)
	f.llm.AssertNumberOfCalls(t, "CompleteStructured", 3)

	entry, err := f.store.FindByName(ctx, "红烧肉")
	require.NoError(t, err)
	assert.Equal(t, model.JSONBStringArray{"五花肉", "冰糖"}, entry.Ingredients)
	assert.Equal(t, model.JSONBStringArray{FallbackTag}, entry.Tags)
	assert.Equal(t, 3, entry.Difficulty)
	assert.Equal(t, 0, entry.EstimatedCalories)
}

func TestBatchAugmenterMalformedIsNotRetried(t *testing.T) {
	f := newAugmentFixture(t)
	ctx := context.Background()

	f.llm.On("CompleteStructured", ctx, mock.Anything).Return(nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload))

	stats, err := f.aug.Run(ctx, singleDishCorpus())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fallback)
	assert.Empty(t, f.sleeps)
	f.llm.AssertNumberOfCalls(t, "CompleteStructured", 1)
}

func TestBatchAugmenterEmptyIngredientsFallsBack(t *testing.T) {
	f := newAugmentFixture(t)
	ctx := context.Background()

	f.llm.On("CompleteStructured", ctx, mock.Anything).Return(`{"main_ingredients": [], "tags": ["x"]}`, nil)

	stats, err := f.aug.Run(ctx, singleDishCorpus())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fallback)

	entry, err := f.store.FindByName(ctx, "红烧肉")
	require.NoError(t, err)
	assert.Equal(t, model.JSONBStringArray{FallbackTag}, entry.Tags)
}

func TestBatchAugmenterResumes(t *testing.T) {
	f := newAugmentFixture(t)
	ctx := context.Background()
	seedCatalog(t, f.store, model.CatalogEntry{
		Name:        "红烧肉",
		Category:    "meat_dish",
		Ingredients: model.JSONBStringArray{"五花肉"},
		Tags:        model.JSONBStringArray{"下饭"},
	})

	corpus := singleDishCorpus()
	corpus["soup/紫菜蛋花汤.md"] = &fstest.MapFile{Data: []byte("# 紫菜蛋花汤\n")}

	f.llm.On("CompleteStructured", ctx, mock.MatchedBy(func(s string) bool {
		return assert.Contains(t, s, "紫菜蛋花汤")
	})).Return(`{"main_ingredients": ["紫菜", "鸡蛋"]}`, nil)

	stats, err := f.aug.Run(ctx, corpus)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Scanned: 2, Skipped: 1, Analyzed: 1}, stats)
	f.llm.AssertNumberOfCalls(t, "CompleteStructured", 1)

	entry, err := f.store.FindByName(ctx, "紫菜蛋花汤")
	require.NoError(t, err)
	assert.Equal(t, model.JSONBStringArray{FallbackTag}, entry.Tags)

	stats, err = f.aug.Run(ctx, corpus)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Scanned: 2, Skipped: 2}, stats)
	f.llm.AssertNumberOfCalls(t, "CompleteStructured", 1)
}

func TestBatchAugmenterAfterImport(t *testing.T) {
	f := newAugmentFixture(t)
	ctx := context.Background()
	corpus := singleDishCorpus()

	_, err := NewImporter(f.store, 1, zap.NewNop()).Import(ctx, corpus, false)
	require.NoError(t, err)
	imported, err := f.store.FindByName(ctx, "红烧肉")
	require.NoError(t, err)
	require.NotEmpty(t, imported.Ingredients)
	require.Empty(t, imported.Tags)

	f.llm.On("CompleteStructured", ctx, mock.Anything).
		Return(`{"main_ingredients": ["五花肉", "冰糖"], "tags": ["下饭"], "difficulty": 4, "calories": 650}`, nil)

	stats, err := f.aug.Run(ctx, corpus)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Scanned: 1, Analyzed: 1}, stats)
	f.llm.AssertNumberOfCalls(t, "CompleteStructured", 1)

	entry, err := f.store.FindByName(ctx, "红烧肉")
	require.NoError(t, err)
	assert.Equal(t, model.JSONBStringArray{"下饭"}, entry.Tags)
	assert.Equal(t, 650, entry.EstimatedCalories)
	assert.Equal(t, 4, entry.Difficulty)
}

func TestBatchAugmenterStopsOnCancel(t *testing.T) {
	f := newAugmentFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.aug.Run(ctx, singleDishCorpus())
	assert.ErrorIs(t, err, context.Canceled)
	f.llm.AssertNotCalled(t, "CompleteStructured", mock.Anything, mock.Anything)
}

func TestAnalysisInstructionTruncatesContent(t *testing.T) {
	f := newAugmentFixture(t)
	f.aug.cfg.ContentRunes = 4

	var got string
	f.llm.On("CompleteStructured", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.String(1) }).
		Return(`{"main_ingredients": ["豆腐"]}`, nil)

	_, ok := f.aug.analyze(context.Background(), "麻婆豆腐", "一二三四五六", zap.NewNop())
	require.True(t, ok)
	assert.Contains(t, got, "内容：一二三四...")
	assert.NotContains(t, got, "五")
}
