package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/internal/model"
	"github.com/pageza/recipe-catalog/backend/internal/testhelpers"
)

func seedCatalog(t *testing.T, store CatalogStore, entries ...model.CatalogEntry) {
	t.Helper()
	for i := range entries {
		e := entries[i]
		if e.Difficulty == 0 {
			e.Difficulty = 3
		}
		require.NoError(t, store.Upsert(context.Background(), &e))
	}
}

func newMatchFixture(t *testing.T) (*GormCatalogStore, *MatchEngine) {
	store := NewCatalogStore(testhelpers.SetupTestDB(t), 0)
	return store, NewMatchEngine(store, DefaultMaxMissing, DefaultPantryLimit, zap.NewNop(), nil)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 67, Score(2, 3))
	assert.Equal(t, 33, Score(1, 3))
	assert.Equal(t, 50, Score(1, 2))
	assert.Equal(t, 100, Score(4, 4))
	assert.Equal(t, 13, Score(1, 8)) // 12.5 rounds up
	assert.Equal(t, 0, Score(1, 0))

	for n := 1; n <= 12; n++ {
		prev := -1
		for hits := 0; hits <= n; hits++ {
			s := Score(hits, n)
			assert.GreaterOrEqual(t, s, prev, "hits=%d n=%d", hits, n)
			prev = s
		}
	}
}

func TestParsePantry(t *testing.T) {
	assert.Equal(t, []string{"番茄", "鸡蛋", "葱"}, ParsePantry(" 番茄，鸡蛋, 葱 ,,番茄"))
	assert.Empty(t, ParsePantry(""))
	assert.Empty(t, ParsePantry(" , ，"))
}

func TestMatchTomatoEgg(t *testing.T) {
	store, engine := newMatchFixture(t)
	seedCatalog(t, store, model.CatalogEntry{
		Name:        "tomato-egg",
		Category:    "vegetable_dish",
		Ingredients: model.JSONBStringArray{"tomato", "egg", "scallion"},
		Tags:        model.JSONBStringArray{"quick"},
	})

	results, err := engine.Match(context.Background(), []string{"tomato", "egg"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MatchResult{
		Name:     "tomato-egg",
		Category: "vegetable_dish",
		Score:    67,
		Missing:  []string{"scallion"},
		Tags:     []string{"quick"},
	}, results[0])

	results, err = engine.Match(context.Background(), []string{"carrot"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchSymmetricContainment(t *testing.T) {
	store, engine := newMatchFixture(t)
	seedCatalog(t, store, model.CatalogEntry{
		Name:        "番茄炒蛋",
		Ingredients: model.JSONBStringArray{"番茄", "鸡蛋", "小葱"},
	})

	// "大番茄" contains "番茄"; "蛋" is contained in "鸡蛋"
	results, err := engine.Match(context.Background(), []string{"大番茄", "蛋"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 67, results[0].Score)
	assert.Equal(t, []string{"小葱"}, results[0].Missing)
}

func TestMatchNoCaseFolding(t *testing.T) {
	store, engine := newMatchFixture(t)
	seedCatalog(t, store, model.CatalogEntry{
		Name:        "salad",
		Ingredients: model.JSONBStringArray{"Lettuce"},
	})

	results, err := engine.Match(context.Background(), []string{"lettuce"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchMissingBound(t *testing.T) {
	store, engine := newMatchFixture(t)
	seedCatalog(t, store,
		model.CatalogEntry{Name: "three-missing", Ingredients: model.JSONBStringArray{"a", "x1", "x2", "x3"}},
		model.CatalogEntry{Name: "four-missing", Ingredients: model.JSONBStringArray{"a", "x1", "x2", "x3", "x4"}},
	)

	results, err := engine.Match(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "three-missing", results[0].Name)
	assert.Equal(t, 25, results[0].Score)
}

func TestMatchSkipsEntriesWithoutIngredients(t *testing.T) {
	store, engine := newMatchFixture(t)
	seedCatalog(t, store,
		model.CatalogEntry{Name: "empty"},
		model.CatalogEntry{Name: "rice", Ingredients: model.JSONBStringArray{"rice"}},
	)

	results, err := engine.Match(context.Background(), []string{"rice", "empty"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rice", results[0].Name)
	assert.Equal(t, []string{}, results[0].Missing)
	assert.Equal(t, []string{}, results[0].Tags)
}

func TestMatchEmptyAvailable(t *testing.T) {
	engine := NewMatchEngine(failingCatalog{}, DefaultMaxMissing, DefaultPantryLimit, zap.NewNop(), nil)

	results, err := engine.Match(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMatchOrderAndCap(t *testing.T) {
	store, engine := newMatchFixture(t)

	var entries []model.CatalogEntry
	for i := 0; i < 25; i++ {
		entries = append(entries, model.CatalogEntry{
			Name:        fmt.Sprintf("half-%02d", i),
			Ingredients: model.JSONBStringArray{"egg", "flour"},
		})
	}
	entries = append(entries, model.CatalogEntry{
		Name:        "full",
		Ingredients: model.JSONBStringArray{"egg"},
	})
	seedCatalog(t, store, entries...)

	results, err := engine.Match(context.Background(), []string{"egg"})
	require.NoError(t, err)
	require.Len(t, results, DefaultPantryLimit)

	assert.Equal(t, "full", results[0].Name)
	assert.Equal(t, 100, results[0].Score)
	for i, r := range results[1:] {
		assert.Equal(t, fmt.Sprintf("half-%02d", i), r.Name)
		assert.Equal(t, 50, r.Score)
	}
}
