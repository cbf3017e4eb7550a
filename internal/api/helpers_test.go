package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipe-catalog/backend/internal/middleware"
	"github.com/pageza/recipe-catalog/backend/internal/mocks"
	"github.com/pageza/recipe-catalog/backend/internal/model"
	"github.com/pageza/recipe-catalog/backend/internal/service"
	"github.com/pageza/recipe-catalog/backend/internal/testhelpers"
)

type testEnv struct {
	db      *gorm.DB
	store   *service.GormCatalogStore
	llm     *mocks.MockCompleter
	content *mocks.MockContentStore
	router  *gin.Engine
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	log := zap.NewNop()
	store := service.NewCatalogStore(db, 0)
	llm := new(mocks.MockCompleter)
	content := new(mocks.MockContentStore)

	synth := service.NewSynthesizer(llm, content, store, log, nil)
	resolver := service.NewSearchResolver(store, synth, nil, service.ResolverConfig{}, log, nil)
	handler := NewHandler(
		resolver,
		service.NewMatchEngine(store, service.DefaultMaxMissing, service.DefaultPantryLimit, log, nil),
		service.NewDetailService(store, content, llm, log),
		service.NewChefService(llm, store, resolver, log),
		service.NewHistoryService(db),
		log,
	)

	router := gin.New()
	router.Use(requestid.New(), middleware.Recovery(log), middleware.ErrorHandler())
	handler.RegisterRoutes(router.Group("/api/v1"), nil)

	return &testEnv{
		db:      db,
		store:   store,
		llm:     llm,
		content: content,
		router:  router,
	}
}

func (e *testEnv) seed(t *testing.T, entries ...model.CatalogEntry) {
	t.Helper()
	for i := range entries {
		entry := entries[i]
		if entry.Difficulty == 0 {
			entry.Difficulty = 3
		}
		require.NoError(t, e.store.Upsert(context.Background(), &entry))
	}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func statusOK(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
