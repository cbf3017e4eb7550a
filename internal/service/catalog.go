package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/pageza/recipe-catalog/backend/internal/model"
)

// DefaultSearchLimit caps FindByQuery results
const DefaultSearchLimit = 20

// GormCatalogStore persists catalog entries through GORM. Substring matching is
// exact code-point containment with no case folding on every backend.
type GormCatalogStore struct {
	db       *gorm.DB
	validate *validator.Validate
	limit    int
}

// NewCatalogStore creates a new GormCatalogStore; limit <= 0 uses DefaultSearchLimit
func NewCatalogStore(db *gorm.DB, limit int) *GormCatalogStore {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &GormCatalogStore{
		db:       db,
		validate: validator.New(),
		limit:    limit,
	}
}

// containsExpr returns a case-sensitive substring predicate for the active dialect
func (s *GormCatalogStore) containsExpr(column string) string {
	if s.db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("strpos(%s, ?) > 0", column)
	}
	return fmt.Sprintf("instr(%s, ?) > 0", column)
}

// FindByQuery returns entries whose name or any tag contains q, in scan order
func (s *GormCatalogStore) FindByQuery(ctx context.Context, q string) ([]model.CatalogEntry, error) {
	if q == "" {
		return []model.CatalogEntry{}, nil
	}

	// tags are stored as a JSON array; the escaped form of q is a substring of the
	// column whenever q is a substring of one element
	escaped, err := jsonStringBody(q)
	if err != nil {
		return nil, err
	}

	var candidates []model.CatalogEntry
	err = s.db.WithContext(ctx).
		Where(s.containsExpr("name")+" OR "+s.containsExpr("tags"), q, escaped).
		Order("id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("find by query: %w", err)
	}

	results := make([]model.CatalogEntry, 0, len(candidates))
	for _, e := range candidates {
		if !entryMatchesQuery(e, q) {
			continue
		}
		results = append(results, e)
		if len(results) == s.limit {
			break
		}
	}
	return results, nil
}

// entryMatchesQuery drops candidates that only matched across JSON element boundaries
func entryMatchesQuery(e model.CatalogEntry, q string) bool {
	if strings.Contains(e.Name, q) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(tag, q) {
			return true
		}
	}
	return false
}

func jsonStringBody(s string) (string, error) {
	encoded, err := model.EncodeJSONString(s)
	if err != nil {
		return "", err
	}
	return encoded[1 : len(encoded)-1], nil
}

// FindAll returns every entry in primary key order
func (s *GormCatalogStore) FindAll(ctx context.Context) ([]model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	return entries, nil
}

// FindByName returns the entry with exactly this name or ErrNotFound
func (s *GormCatalogStore) FindByName(ctx context.Context, name string) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("find by name: %w", err)
	}
	return &entry, nil
}

// FindByNameContaining returns the first entry, in scan order, whose name
// contains fragment, or ErrNotFound
func (s *GormCatalogStore) FindByNameContaining(ctx context.Context, fragment string) (*model.CatalogEntry, error) {
	if fragment == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNotFound)
	}
	var entry model.CatalogEntry
	err := s.db.WithContext(ctx).
		Where(s.containsExpr("name"), fragment).
		Order("id ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fragment)
	}
	if err != nil {
		return nil, fmt.Errorf("find by name containing: %w", err)
	}
	return &entry, nil
}

// Upsert replaces any entry with the same name. Delete and insert run in one
// transaction so readers never observe the name as absent.
func (s *GormCatalogStore) Upsert(ctx context.Context, entry *model.CatalogEntry) error {
	if err := s.validate.StructCtx(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", entry.Name).Delete(&model.CatalogEntry{}).Error; err != nil {
			return err
		}
		entry.ID = 0
		return tx.Create(entry).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Clear removes every entry. Only the offline rebuild calls this.
func (s *GormCatalogStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.CatalogEntry{}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
