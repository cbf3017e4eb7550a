package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/internal/metrics"
	"github.com/pageza/recipe-catalog/backend/internal/model"
)

const (
	// GeneratedCategory labels entries created by the generation fallback
	GeneratedCategory = "AI生成"
	// GeneratedContentDir is the content store folder for generated bodies
	GeneratedContentDir = "AI_Generated"

	defaultDifficulty = 3
)

// PlaceholderBody is the document stored when a reply carries no usable body
func PlaceholderBody(name string) string {
	return fmt.Sprintf("# %s\n\n暂时没有详细菜谱，稍后再来看看吧。", name)
}

// flexInt accepts a JSON number or a numeric string
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.Value, f.Set = int(num), true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			f.Value, f.Set = int(n), true
		}
		return nil
	}

	// anything else is treated as absent
	return nil
}

// GeneratedMeta is the metadata block of a generation reply
type GeneratedMeta struct {
	MainIngredients []string `json:"main_ingredients"`
	Tags            []string `json:"tags"`
	Difficulty      flexInt  `json:"difficulty"`
	Calories        flexInt  `json:"calories"`
}

// GeneratedRecipe is the structured reply for a generation instruction
type GeneratedRecipe struct {
	MarkdownContent string         `json:"markdown_content"`
	Meta            *GeneratedMeta `json:"meta"`
}

// decodeGeneratedRecipe applies the payload schema. ok is false when the body is
// missing; metadata fields fall back to defaults individually.
func decodeGeneratedRecipe(raw json.RawMessage) (body string, meta GeneratedMeta, ok bool) {
	var payload GeneratedRecipe
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", GeneratedMeta{}, false
	}
	body = strings.TrimSpace(payload.MarkdownContent)
	if body == "" {
		return "", GeneratedMeta{}, false
	}
	if payload.Meta != nil {
		meta = *payload.Meta
	}
	return body, meta, true
}

// clampDifficulty keeps difficulty in [1,5], defaulting to 3 when absent
func clampDifficulty(d flexInt) int {
	if !d.Set {
		return defaultDifficulty
	}
	switch {
	case d.Value < 1:
		return 1
	case d.Value > 5:
		return 5
	}
	return d.Value
}

func nonNegative(c flexInt) int {
	if !c.Set || c.Value < 0 {
		return 0
	}
	return c.Value
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func generationInstruction(name string) string {
	return fmt.Sprintf(`请为菜品「%s」生成一份完整的家常菜谱，并严格返回如下 JSON 对象：
{
  "markdown_content": "Markdown 格式的完整菜谱，包含「## 必备原料和工具」与「## 操作」两个小节",
  "meta": {
    "main_ingredients": ["3~8 个核心食材，每项只写食材名"],
    "tags": ["1~5 个标签"],
    "difficulty": 3,
    "calories": 500
  }
}
difficulty 为 1 到 5 的整数，calories 为一人份估算热量（非负整数）。`, name)
}

// Synthesizer builds catalog entries through the generative collaborator
type Synthesizer struct {
	llm     Completer
	content ContentStore
	catalog CatalogStore
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewSynthesizer creates a new Synthesizer
func NewSynthesizer(llm Completer, content ContentStore, catalog CatalogStore, logger *zap.Logger, m *metrics.Collector) *Synthesizer {
	return &Synthesizer{
		llm:     llm,
		content: content,
		catalog: catalog,
		logger:  logger,
		metrics: m,
	}
}

// Synthesize generates, stores and upserts an entry for name.
//
// A transport failure returns ErrGenerationUnavailable and nothing is written. A
// reply without a usable payload still produces a placeholder entry. A failed
// catalog write is logged and the entry is returned anyway.
func (s *Synthesizer) Synthesize(ctx context.Context, name string) (*model.CatalogEntry, error) {
	log := s.logger.With(zap.String("name", name))

	raw, err := s.llm.CompleteStructured(ctx, generationInstruction(name))
	if err != nil && !errors.Is(err, ErrMalformedPayload) {
		log.Warn("generation unavailable", zap.Error(err))
		s.metrics.RecordGeneration(metrics.OutcomeUnavailable)
		return nil, err
	}

	body, meta, ok := "", GeneratedMeta{}, false
	if err == nil {
		body, meta, ok = decodeGeneratedRecipe(raw)
	}
	if !ok {
		log.Warn("malformed generation payload, using placeholder")
		body, meta = PlaceholderBody(name), GeneratedMeta{}
	}

	entry := &model.CatalogEntry{
		Name:              name,
		Category:          GeneratedCategory,
		Ingredients:       SanitizeIngredients(meta.MainIngredients, model.MaxIngredientRunes),
		Tags:              cleanTags(meta.Tags),
		Difficulty:        clampDifficulty(meta.Difficulty),
		EstimatedCalories: nonNegative(meta.Calories),
	}

	ref, err := s.content.Write(ctx, GeneratedContentDir, name, body)
	if err != nil {
		log.Warn("failed to store generated body", zap.Error(err))
		ref = ContentRef(GeneratedContentDir, name)
	}
	entry.ContentRef = ref

	if err := s.catalog.Upsert(ctx, entry); err != nil {
		log.Error("failed to persist generated entry", zap.Error(err))
		s.metrics.RecordGeneration(metrics.OutcomeUnpersisted)
		return entry, nil
	}

	if ok {
		s.metrics.RecordGeneration(metrics.OutcomeGenerated)
	} else {
		s.metrics.RecordGeneration(metrics.OutcomePlaceholder)
	}
	log.Info("generated catalog entry",
		zap.Int("ingredients", len(entry.Ingredients)),
		zap.Bool("placeholder", !ok),
	)
	return entry, nil
}
