package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxExtractedRunes is the exclusive upper bound on an extracted ingredient's length
const MaxExtractedRunes = 10

var (
	ingredientHeadingKeywords = []string{
		"原料", "材料", "食材",
		"ingredients", "materials", "main-ingredients",
	}

	ingredientStopwords = map[string]struct{}{
		"主料":                    {},
		"辅料":                    {},
		"可选":                    {},
		"main ingredients":      {},
		"auxiliary ingredients": {},
		"optional":              {},
	}
)

type scanState int

const (
	stateScanning scanState = iota
	stateCapturing
)

// IngredientNormalizer pulls ingredient names out of a markdown recipe document.
//
// It is a two-state scanner over trimmed lines:
//
//	SCANNING  + heading with keyword -> CAPTURING
//	SCANNING  + anything else        -> SCANNING
//	CAPTURING + heading              -> SCANNING (line discarded)
//	CAPTURING + bullet item          -> CAPTURING (item parsed)
//	CAPTURING + other line           -> CAPTURING (ignored)
//
// A heading that matches the keyword set while CAPTURING ends the current session
// like any other heading; a later matching heading starts a new one.
type IngredientNormalizer struct{}

// NewIngredientNormalizer creates a new IngredientNormalizer
func NewIngredientNormalizer() *IngredientNormalizer {
	return &IngredientNormalizer{}
}

// Extract returns the deduplicated ingredients found under ingredient headings.
// Order follows first appearance. No matching heading yields an empty slice.
func (n *IngredientNormalizer) Extract(document string) []string {
	state := stateScanning
	seen := make(map[string]struct{})
	items := []string{}

	for _, raw := range strings.Split(document, "\n") {
		line := strings.TrimSpace(raw)

		switch state {
		case stateScanning:
			if isHeading(line) && hasIngredientKeyword(line) {
				state = stateCapturing
			}
		case stateCapturing:
			if isHeading(line) {
				state = stateScanning
				continue
			}
			if !isBullet(line) {
				continue
			}
			item, ok := parseIngredientItem(line)
			if !ok {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			items = append(items, item)
		}
	}

	return items
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "##")
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")
}

func hasIngredientKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range ingredientHeadingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isItemDelimiter(r rune) bool {
	switch r {
	case ':', '：', ',', '，':
		return true
	}
	return r >= '0' && r <= '9'
}

// parseIngredientItem strips the bullet marker, cuts at the first delimiter and
// applies the length and stopword filters.
func parseIngredientItem(line string) (string, bool) {
	text := strings.TrimSpace(line[1:])
	if i := strings.IndexFunc(text, isItemDelimiter); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "*", ""))
	return acceptIngredient(text, MaxExtractedRunes)
}

// acceptIngredient applies the shared item filters: non-empty, shorter than maxRunes,
// not a section label.
func acceptIngredient(item string, maxRunes int) (string, bool) {
	item = strings.TrimFunc(item, unicode.IsSpace)
	if item == "" || utf8.RuneCountInString(item) >= maxRunes {
		return "", false
	}
	if _, stop := ingredientStopwords[strings.ToLower(item)]; stop {
		return "", false
	}
	return item, true
}

// SanitizeIngredients trims, filters and deduplicates an externally supplied list,
// preserving order.
func SanitizeIngredients(items []string, maxRunes int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, raw := range items {
		item, ok := acceptIngredient(strings.ReplaceAll(raw, "*", ""), maxRunes)
		if !ok {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
