package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/recipe-catalog/backend/internal/model"
)

// Fixed assistant replies
const (
	ChefUnavailableAnswer = "厨师这边暂时连不上，稍后再试试吧～"
	ChefEmptyMessageReply = "先告诉我你家里有什么食材吧～"
	ChefFallbackReply     = "我这会儿有点卡壳，你可以先用搜索框手动搜菜名。"
	ChefRetryReply        = "试着换个说法再问我一次吧～"

	defaultExistingScore = 80
	defaultMissingScore  = 60
	recommendWorkers     = 3
)

// Recommendation is one dish suggested by the assistant
type Recommendation struct {
	Name     string   `json:"name"`
	Score    int      `json:"score"`
	Missing  []string `json:"missing"`
	Exists   bool     `json:"exists"`
	Category string   `json:"category,omitempty"`
}

// ChefReply is the assistant's answer to a pantry description
type ChefReply struct {
	Reply   string           `json:"reply"`
	Recipes []Recommendation `json:"recipes"`
}

type chefPick struct {
	Name    string   `json:"name"`
	Missing []string `json:"missing"`
	Score   flexInt  `json:"score"`
}

type chefPayload struct {
	Reply   string          `json:"reply"`
	Recipes json.RawMessage `json:"recipes"`
}

// picks accepts a list of dishes or a single dish object
func (p chefPayload) picks() []chefPick {
	if len(p.Recipes) == 0 {
		return nil
	}
	var list []chefPick
	if err := json.Unmarshal(p.Recipes, &list); err == nil {
		return list
	}
	var one chefPick
	if err := json.Unmarshal(p.Recipes, &one); err == nil {
		return []chefPick{one}
	}
	return nil
}

// ChefService is the conversational cooking assistant
type ChefService struct {
	llm      Completer
	catalog  CatalogStore
	resolver *SearchResolver
	logger   *zap.Logger
}

// NewChefService creates a new ChefService
func NewChefService(llm Completer, catalog CatalogStore, resolver *SearchResolver, logger *zap.Logger) *ChefService {
	return &ChefService{
		llm:      llm,
		catalog:  catalog,
		resolver: resolver,
		logger:   logger,
	}
}

// AskChef answers a free-form question about a recipe
func (s *ChefService) AskChef(ctx context.Context, recipe, question string) string {
	answer, err := s.llm.Complete(ctx, fmt.Sprintf("菜谱《%s》，用户提问：%s", recipe, question))
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.Warn("ask chef unavailable", zap.String("recipe", recipe), zap.Error(err))
		return ChefUnavailableAnswer
	}
	return answer
}

func recommendInstruction(message string) string {
	return fmt.Sprintf(`你是一个根据用户现有食材推荐菜谱的中文厨师助手。
用户说："%s"。

请先判断用户大概有哪些食材、是否有饮食限制（例如：想减脂、不要辣、不要油炸等）。

严格输出 JSON（不要写多余文字），格式：
{
  "reply": "用口语化中文，2~3 句，对用户说今天可以怎么吃。",
  "recipes": [
    {"name": "对应的菜名", "missing": ["缺少的关键食材"], "score": 0 到 100 的整数，表示推荐程度}
  ]
}
如果暂时想不到菜，就把 recipes 设为 []，reply 里诚实说明。`, message)
}

// Recommend suggests dishes for a pantry description. Suggested dishes missing
// from the catalog are generated through the resolver.
func (s *ChefService) Recommend(ctx context.Context, message string) ChefReply {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChefReply{Reply: ChefEmptyMessageReply, Recipes: []Recommendation{}}
	}

	raw, err := s.llm.CompleteStructured(ctx, recommendInstruction(message))
	if err != nil {
		s.logger.Warn("chef recommendation unavailable", zap.Error(err))
		return ChefReply{Reply: ChefFallbackReply, Recipes: []Recommendation{}}
	}

	var payload chefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn("malformed chef payload", zap.Error(err))
		return ChefReply{Reply: ChefFallbackReply, Recipes: []Recommendation{}}
	}

	picks := make([]chefPick, 0)
	for _, p := range payload.picks() {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name != "" {
			picks = append(picks, p)
		}
	}

	recs := make([]Recommendation, len(picks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recommendWorkers)
	for i, p := range picks {
		g.Go(func() error {
			recs[i] = s.recommendation(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	reply := strings.TrimSpace(payload.Reply)
	if reply == "" {
		reply = ChefRetryReply
	}
	return ChefReply{Reply: reply, Recipes: recs}
}

func (s *ChefService) recommendation(ctx context.Context, p chefPick) Recommendation {
	missing := SanitizeIngredients(p.Missing, model.MaxIngredientRunes)

	entry := s.lookup(ctx, p.Name)
	if entry == nil {
		generated, err := s.resolver.Generate(ctx, p.Name)
		if err != nil {
			s.logger.Info("recommended dish not generated", zap.String("name", p.Name), zap.Error(err))
		}
		entry = generated
	}

	if entry == nil {
		return Recommendation{
			Name:    p.Name,
			Score:   scoreOrDefault(p.Score, defaultMissingScore),
			Missing: missing,
		}
	}
	return Recommendation{
		Name:     entry.Name,
		Score:    scoreOrDefault(p.Score, defaultExistingScore),
		Missing:  missing,
		Exists:   true,
		Category: entry.Category,
	}
}

// lookup returns the first entry whose name contains name
func (s *ChefService) lookup(ctx context.Context, name string) *model.CatalogEntry {
	entry, err := s.catalog.FindByNameContaining(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("catalog lookup failed", zap.String("name", name), zap.Error(err))
		}
		return nil
	}
	return entry
}

func scoreOrDefault(score flexInt, def int) int {
	if !score.Set {
		return def
	}
	switch {
	case score.Value < 0:
		return 0
	case score.Value > 100:
		return 100
	}
	return score.Value
}
