package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxIngredientRunes bounds a single ingredient item at rest
const MaxIngredientRunes = 24

// JSONBStringArray is a string list stored as a JSON array in a text column
type JSONBStringArray []string

// Value implements the driver.Valuer interface. Non-ASCII text is stored unescaped
// so that substring queries against the column see the original characters.
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return EncodeJSONString([]string(a))
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSONBStringArray", value)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		*a = JSONBStringArray{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// EncodeJSONString marshals v without HTML escaping and without the trailing newline
func EncodeJSONString(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// CatalogEntry is one recipe in the catalog. Name is the natural key.
type CatalogEntry struct {
	ID                uint             `gorm:"primaryKey" json:"-"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Name              string           `gorm:"size:255;not null;uniqueIndex" json:"name" validate:"required,max=255"`
	Category          string           `gorm:"size:100" json:"category" validate:"max=100"`
	ContentRef        string           `gorm:"size:512" json:"content_ref" validate:"max=512"`
	Ingredients       JSONBStringArray `gorm:"type:text;not null;default:'[]'" json:"ingredients" validate:"dive,required,max=24"`
	Tags              JSONBStringArray `gorm:"type:text;not null;default:'[]'" json:"tags" validate:"dive,required"`
	Difficulty        int              `gorm:"not null;default:3" json:"difficulty" validate:"min=1,max=5"`
	EstimatedCalories int              `gorm:"not null;default:0" json:"estimated_calories" validate:"min=0"`
}

func (CatalogEntry) TableName() string {
	return "catalog_entries"
}

// SearchHistory is the append-only log of past search queries
type SearchHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Keyword    string    `gorm:"size:255;not null;index" json:"keyword"`
	SearchedAt time.Time `gorm:"not null;index" json:"searched_at"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}
