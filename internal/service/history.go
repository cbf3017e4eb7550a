package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/recipe-catalog/backend/internal/model"
)

// DefaultHistoryLimit caps Recent when no limit is given
const DefaultHistoryLimit = 10

// HistoryService stores the append-only search log
type HistoryService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db, now: time.Now}
}

// Record appends a search keyword. Blank keywords are ignored.
func (s *HistoryService) Record(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}

	row := model.SearchHistory{
		ID:         uuid.New(),
		Keyword:    keyword,
		SearchedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: record search: %v", ErrPersistence, err)
	}
	return nil
}

// Recent returns distinct keywords, most recently searched first
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var keywords []string
	err := s.db.WithContext(ctx).
		Model(&model.SearchHistory{}).
		Select("keyword").
		Group("keyword").
		Order("MAX(searched_at) DESC").
		Limit(limit).
		Pluck("keyword", &keywords).Error
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	if keywords == nil {
		keywords = []string{}
	}
	return keywords, nil
}
