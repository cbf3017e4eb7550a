package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// Detail is a catalog entry with its rendered document
type Detail struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	HTML     string   `json:"html"`
	Calories int      `json:"calories"`
	Tags     []string `json:"tags"`
}

// MissingBody is the document shown when neither the store nor the model can supply one
func MissingBody(name string) string {
	return fmt.Sprintf("# %s\n\n暂时找不到原始菜谱。", name)
}

// DetailService resolves and renders entry documents
type DetailService struct {
	catalog  CatalogStore
	content  ContentStore
	llm      Completer
	markdown goldmark.Markdown
	logger   *zap.Logger
}

// NewDetailService creates a new DetailService
func NewDetailService(catalog CatalogStore, content ContentStore, llm Completer, logger *zap.Logger) *DetailService {
	return &DetailService{
		catalog:  catalog,
		content:  content,
		llm:      llm,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

// Get returns the rendered detail for name, or ErrNotFound when the catalog has no such entry
func (s *DetailService) Get(ctx context.Context, name string) (*Detail, error) {
	entry, err := s.catalog.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	body := s.body(ctx, entry.Name, entry.ContentRef)

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	tags := []string(entry.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &Detail{
		Name:     entry.Name,
		Category: entry.Category,
		HTML:     buf.String(),
		Calories: entry.EstimatedCalories,
		Tags:     tags,
	}, nil
}

// body reads the stored document, asking the model for a rewrite when it is missing
func (s *DetailService) body(ctx context.Context, name, ref string) string {
	text, err := s.content.Read(ctx, ref)
	if err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	if err != nil && !errors.Is(err, ErrContentMissing) {
		s.logger.Warn("content read failed", zap.String("ref", ref), zap.Error(err))
	}

	instruction := fmt.Sprintf("菜谱文件丢失了，请为《%s》写一份详细菜谱，使用 Markdown 标题和步骤列表。", name)
	text, err = s.llm.Complete(ctx, instruction)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn("document repair unavailable", zap.String("name", name), zap.Error(err))
		return MissingBody(name)
	}
	return text
}
