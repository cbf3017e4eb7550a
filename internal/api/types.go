package api

import "github.com/pageza/recipe-catalog/backend/internal/model"

// SearchResult is the catalog entry shape returned by search
type SearchResult struct {
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	Tags              []string `json:"tags"`
	Ingredients       []string `json:"ingredients"`
	Difficulty        int      `json:"difficulty"`
	EstimatedCalories int      `json:"estimated_calories"`
}

func newSearchResult(e model.CatalogEntry) SearchResult {
	r := SearchResult{
		Name:              e.Name,
		Category:          e.Category,
		Tags:              e.Tags,
		Ingredients:       e.Ingredients,
		Difficulty:        e.Difficulty,
		EstimatedCalories: e.EstimatedCalories,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	return r
}

// TokenRequest encodes a recipe token
type TokenRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	Cal  *int   `json:"cal" binding:"required,min=0"`
}

// TokenResponse carries an encoded token
type TokenResponse struct {
	Token string `json:"token"`
}

// ParsedToken is a decoded recipe token
type ParsedToken struct {
	Name string `json:"name"`
	Cal  int    `json:"cal"`
}

// AskChefRequest is a question about one recipe
type AskChefRequest struct {
	Recipe   string `json:"recipe" binding:"max=255"`
	Question string `json:"question" binding:"required,max=1000"`
}

// AskChefResponse is the assistant's answer
type AskChefResponse struct {
	Answer string `json:"answer"`
}

// ChefChatRequest describes what the user has at home
type ChefChatRequest struct {
	Message string `json:"message" binding:"max=1000"`
}

// HistoryResponse lists recent search keywords
type HistoryResponse struct {
	Keywords []string `json:"keywords"`
}
