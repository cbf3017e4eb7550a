package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/metrics"
	"github.com/pageza/recipe-catalog/backend/internal/mocks"
	"github.com/pageza/recipe-catalog/backend/internal/model"
	"github.com/pageza/recipe-catalog/backend/internal/server"
	"github.com/pageza/recipe-catalog/backend/internal/service"
	"github.com/pageza/recipe-catalog/backend/internal/testhelpers"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		Catalog: config.CatalogConfig{
			SearchLimit:      20,
			MaxQueryRunes:    20,
			PantryLimit:      20,
			MaxMissing:       3,
			GenerationWait:   10 * time.Second,
			LockTTL:          10 * time.Second,
			LockPollInterval: 20 * time.Millisecond,
		},
		Content:   config.ContentConfig{Provider: "s3"},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}
}

func searchURL(q string) string {
	return "/api/v1/cook/search?" + url.Values{"q": {q}}.Encode()
}

func TestPostgresCatalogStore(t *testing.T) {
	db := testhelpers.SetupPostgresDB(t)
	store := service.NewCatalogStore(db, 0)
	ctx := context.Background()

	for _, e := range []model.CatalogEntry{
		{Name: "番茄炒蛋", Category: "vegetable_dish", Ingredients: model.JSONBStringArray{"番茄", "鸡蛋"}, Tags: model.JSONBStringArray{"快手"}, Difficulty: 2},
		{Name: "红烧肉", Category: "meat_dish", Ingredients: model.JSONBStringArray{"五花肉"}, Tags: model.JSONBStringArray{"下饭", "快手菜"}, Difficulty: 4},
		{Name: "凉拌黄瓜", Category: "vegetable_dish", Tags: model.JSONBStringArray{"凉菜"}, Difficulty: 1},
	} {
		entry := e
		require.NoError(t, store.Upsert(ctx, &entry))
	}

	found, err := store.FindByQuery(ctx, "快手")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "番茄炒蛋", found[0].Name)
	assert.Equal(t, "红烧肉", found[1].Name)

	found, err = store.FindByQuery(ctx, `","`)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, store.Upsert(ctx, &model.CatalogEntry{Name: "番茄炒蛋", Category: "AI_Generated", Difficulty: 3, EstimatedCalories: 300}))
	entry, err := store.FindByName(ctx, "番茄炒蛋")
	require.NoError(t, err)
	assert.Equal(t, "AI_Generated", entry.Category)
	assert.Equal(t, model.JSONBStringArray{}, entry.Ingredients)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	history := service.NewHistoryService(db)
	require.NoError(t, history.Record(ctx, "番茄"))
	require.NoError(t, history.Record(ctx, "红烧肉"))
	recent, err := history.Recent(ctx, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"番茄", "红烧肉"}, recent)
}

// Two API instances share one database and one Redis. Concurrent searches for
// the same unknown name across both must synthesize it exactly once.
func TestGenerationCoordinatedAcrossInstances(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupPostgresDB(t)
	rdb := testhelpers.SetupRedis(t)

	llm := new(mocks.MockCompleter)
	llm.On("CompleteStructured", mock.Anything, mock.Anything).
		After(200*time.Millisecond).
		Return(`{"markdown_content": "# 鱼香肉丝", "meta": {"main_ingredients": ["猪肉", "木耳"], "tags": ["川菜"], "difficulty": 3, "calories": 480}}`, nil)
	content := new(mocks.MockContentStore)
	content.On("Write", mock.Anything, service.GeneratedContentDir, "鱼香肉丝", "# 鱼香肉丝").
		Return("AI_Generated/鱼香肉丝.md", nil)

	newInstance := func(db *gorm.DB) *server.Server {
		return server.New(testConfig(), server.Dependencies{
			DB:      db,
			Redis:   rdb,
			Content: content,
			LLM:     llm,
			Metrics: metrics.NewCollector(),
		}, zap.NewNop())
	}
	instances := []*server.Server{newInstance(db), newInstance(db)}

	var wg sync.WaitGroup
	codes := make([]int, 8)
	bodies := make([]string, 8)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			instances[i%2].Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, searchURL("鱼香肉丝"), nil))
			codes[i] = w.Code
			bodies[i] = w.Body.String()
		}()
	}
	wg.Wait()

	for i := range codes {
		assert.Equal(t, http.StatusOK, codes[i])
		assert.Contains(t, bodies[i], `"name":"鱼香肉丝"`)
	}
	llm.AssertNumberOfCalls(t, "CompleteStructured", 1)
	content.AssertNumberOfCalls(t, "Write", 1)

	keys, err := rdb.Keys(context.Background(), "catalog:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
