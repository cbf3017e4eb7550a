package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipe-catalog/backend/internal/middleware"
	"github.com/pageza/recipe-catalog/backend/internal/model"
	"github.com/pageza/recipe-catalog/backend/internal/service"
	apperrors "github.com/pageza/recipe-catalog/backend/pkg/errors"
)

func q(path string, params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return path + "?" + v.Encode()
}

func TestSearchHit(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, model.CatalogEntry{
		Name:              "番茄炒蛋",
		Category:          "vegetable_dish",
		Ingredients:       model.JSONBStringArray{"番茄", "鸡蛋"},
		Tags:              model.JSONBStringArray{"快手"},
		EstimatedCalories: 320,
	})

	w := env.do(http.MethodGet, q("/api/v1/cook/search", map[string]string{"q": " 番茄 "}), nil)
	statusOK(t, w)

	results := decode[[]SearchResult](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, SearchResult{
		Name:              "番茄炒蛋",
		Category:          "vegetable_dish",
		Tags:              []string{"快手"},
		Ingredients:       []string{"番茄", "鸡蛋"},
		Difficulty:        3,
		EstimatedCalories: 320,
	}, results[0])
	env.llm.AssertNotCalled(t, "CompleteStructured", mock.Anything, mock.Anything)

	recent, err := service.NewHistoryService(env.db).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"番茄"}, recent)
}

func TestSearchEmptyQuery(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/cook/search?q=", nil)
	statusOK(t, w)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSearchGeneratesOnMiss(t *testing.T) {
	env := setupTestEnv(t)

	env.llm.On("CompleteStructured", mock.Anything, mock.Anything).Return(`{
		"markdown_content": "# 酸辣土豆丝",
		"meta": {"main_ingredients": ["土豆", "干辣椒"], "tags": ["下饭"], "difficulty": 2, "calories": 210}
	}`, nil).Once()
	env.content.On("Write", mock.Anything, service.GeneratedContentDir, "酸辣土豆丝", "# 酸辣土豆丝").
		Return("AI_Generated/酸辣土豆丝.md", nil).Once()

	path := q("/api/v1/cook/search", map[string]string{"q": "酸辣土豆丝"})
	w := env.do(http.MethodGet, path, nil)
	statusOK(t, w)
	results := decode[[]SearchResult](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, service.GeneratedCategory, results[0].Category)
	assert.Equal(t, 210, results[0].EstimatedCalories)

	w = env.do(http.MethodGet, path, nil)
	statusOK(t, w)
	require.Len(t, decode[[]SearchResult](t, w), 1)
	env.llm.AssertNumberOfCalls(t, "CompleteStructured", 1)
}

func TestSearchGenerationFailureIsEmpty(t *testing.T) {
	env := setupTestEnv(t)
	env.llm.On("CompleteStructured", mock.Anything, mock.Anything).Return(nil, service.ErrGenerationUnavailable)

	w := env.do(http.MethodGet, q("/api/v1/cook/search", map[string]string{"q": "不存在的菜"}), nil)
	statusOK(t, w)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestPantry(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t,
		model.CatalogEntry{Name: "番茄炒蛋", Category: "vegetable_dish", Ingredients: model.JSONBStringArray{"番茄", "鸡蛋", "葱"}},
		model.CatalogEntry{Name: "胡萝卜炖牛肉", Category: "meat_dish", Ingredients: model.JSONBStringArray{"胡萝卜", "牛肉"}},
	)

	w := env.do(http.MethodGet, q("/api/v1/cook/pantry", map[string]string{"ingredients": "番茄，鸡蛋"}), nil)
	statusOK(t, w)

	results := decode[[]service.MatchResult](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, "番茄炒蛋", results[0].Name)
	assert.Equal(t, 67, results[0].Score)
	assert.Equal(t, []string{"葱"}, results[0].Missing)

	w = env.do(http.MethodGet, "/api/v1/cook/pantry", nil)
	statusOK(t, w)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestDetail(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, model.CatalogEntry{
		Name:              "红烧肉",
		Category:          "meat_dish",
		ContentRef:        "meat_dish/红烧肉.md",
		EstimatedCalories: 650,
	})
	env.content.On("Read", mock.Anything, "meat_dish/红烧肉.md").Return("# 红烧肉\n\n- 五花肉\n", nil)

	w := env.do(http.MethodGet, q("/api/v1/cook/detail", map[string]string{"name": "红烧肉"}), nil)
	statusOK(t, w)

	detail := decode[service.Detail](t, w)
	assert.Equal(t, "meat_dish", detail.Category)
	assert.Equal(t, 650, detail.Calories)
	assert.Contains(t, detail.HTML, "<li>五花肉</li>")
}

func TestDetailErrors(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/cook/detail", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidationFailed, decode[middleware.ErrorResponse](t, w).Code)

	w = env.do(http.MethodGet, q("/api/v1/cook/detail", map[string]string{"name": "佛跳墙"}), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, decode[middleware.ErrorResponse](t, w).Code)
}

func TestToken(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/cook/token", map[string]interface{}{"name": "tomato-egg", "cal": 320})
	statusOK(t, w)
	token := decode[TokenResponse](t, w).Token
	assert.Equal(t, "#HTC:tomato-egg:320#", token)

	w = env.do(http.MethodGet, q("/api/v1/cook/token/parse", map[string]string{"token": token}), nil)
	statusOK(t, w)
	assert.Equal(t, ParsedToken{Name: "tomato-egg", Cal: 320}, decode[ParsedToken](t, w))
}

func TestTokenValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"missing name", map[string]interface{}{"cal": 10}, "name"},
		{"missing cal", map[string]interface{}{"name": "粥"}, "cal"},
		{"negative cal", map[string]interface{}{"name": "粥", "cal": -1}, "cal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/cook/token", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[middleware.ErrorResponse](t, w)
			assert.Equal(t, apperrors.CodeValidationFailed, body.Code)
			assert.Equal(t, tt.field, body.Details)
		})
	}

	w := env.do(http.MethodGet, q("/api/v1/cook/token/parse", map[string]string{"token": "HTC"}), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskChef(t *testing.T) {
	env := setupTestEnv(t)
	env.llm.On("Complete", mock.Anything, "菜谱《红烧肉》，用户提问：放多少糖？").Return("15 克冰糖。", nil)

	w := env.do(http.MethodPost, "/api/v1/cook/ask_chef", map[string]string{"recipe": "红烧肉", "question": "放多少糖？"})
	statusOK(t, w)
	assert.Equal(t, "15 克冰糖。", decode[AskChefResponse](t, w).Answer)

	w = env.do(http.MethodPost, "/api/v1/cook/ask_chef", map[string]string{"recipe": "红烧肉"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChefChat(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, model.CatalogEntry{Name: "番茄炒蛋", Category: "vegetable_dish"})
	env.llm.On("CompleteStructured", mock.Anything, mock.Anything).
		Return(`{"reply": "来个番茄炒蛋吧", "recipes": [{"name": "番茄炒蛋", "score": 90}]}`, nil)

	w := env.do(http.MethodPost, "/api/v1/cook/chef_chat", map[string]string{"message": "有番茄和鸡蛋"})
	statusOK(t, w)

	reply := decode[service.ChefReply](t, w)
	assert.Equal(t, "来个番茄炒蛋吧", reply.Reply)
	require.Len(t, reply.Recipes, 1)
	assert.True(t, reply.Recipes[0].Exists)
	assert.Equal(t, 90, reply.Recipes[0].Score)
}

func TestHistory(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, model.CatalogEntry{Name: "番茄炒蛋"})

	for _, kw := range []string{"番茄", "炒蛋"} {
		statusOK(t, env.do(http.MethodGet, q("/api/v1/cook/search", map[string]string{"q": kw}), nil))
	}

	w := env.do(http.MethodGet, "/api/v1/cook/history?limit=1", nil)
	statusOK(t, w)
	assert.Len(t, decode[HistoryResponse](t, w).Keywords, 1)

	w = env.do(http.MethodGet, "/api/v1/cook/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
