package service

import (
	"strings"

	"github.com/timmy/recipebox/internal/domain"
)

const (
	maxEmbeddingDescriptionRunes = 300
	maxEmbeddingIngredients      = 25
)

func normalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

func compactText(text string, limit int) string {
	cleaned := normalizeWhitespace(strings.TrimSpace(text))
	runes := []rune(cleaned)
	if len(runes) <= limit {
		return cleaned
	}
	return string(runes[:limit])
}

// buildEmbeddingText renders the fields that describe what a recipe is.
// Instructions are left out; they dilute the vector without helping retrieval.
func buildEmbeddingText(r *domain.Recipe) string {
	segments := make([]string, 0, 6)
	if r.Title != "" {
		segments = append(segments, "title:"+normalizeWhitespace(r.Title))
	}
	if desc := compactText(r.Description, maxEmbeddingDescriptionRunes); desc != "" {
		segments = append(segments, "desc:"+desc)
	}
	if r.Cuisine != "" {
		segments = append(segments, "cuisine:"+normalizeWhitespace(r.Cuisine))
	}
	if cats := dedupeStrings(r.Categories); len(cats) > 0 {
		segments = append(segments, "categories:"+strings.Join(cats, " "))
	}
	if diet := dedupeStrings(r.Dietary); len(diet) > 0 {
		segments = append(segments, "dietary:"+strings.Join(diet, " "))
	}
	ingredients := dedupeStrings(r.Ingredients)
	if len(ingredients) > maxEmbeddingIngredients {
		ingredients = ingredients[:maxEmbeddingIngredients]
	}
	if len(ingredients) > 0 {
		segments = append(segments, "ingredients:"+strings.Join(ingredients, "; "))
	}
	return strings.Join(segments, "\n")
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := normalizeWhitespace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
