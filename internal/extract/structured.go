package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/recipebox/internal/domain"
)

const recipeType = "Recipe"

// Structured extracts a recipe from the page's JSON-LD blocks.
// It returns nil when no block declares a Recipe, or when the matched
// recipe has no title or no ingredients and no instructions.
func Structured(html, pageURL string) *domain.RecipeDraft {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return structuredFromDoc(doc, pageURL)
}

func structuredFromDoc(doc *goquery.Document, pageURL string) *domain.RecipeDraft {
	recipe, raw := findRecipeObject(doc)
	if recipe == nil {
		return nil
	}

	title := norm(stringValue(recipe["name"]))
	if title == "" {
		title = norm(doc.Find("title").First().Text())
	}
	if title == "" {
		title = meta(doc, "og:title")
	}

	images := NormalizeImages(recipe["image"], pageURL)
	servings, yield := recipeYield(recipe["recipeYield"])

	draft := &domain.RecipeDraft{
		Title:         title,
		Description:   norm(stringValue(recipe["description"])),
		URL:           pageURL,
		PrepTime:      durationPtr(stringValue(recipe["prepTime"])),
		CookTime:      durationPtr(stringValue(recipe["cookTime"])),
		TotalTime:     durationPtr(stringValue(recipe["totalTime"])),
		Servings:      servings,
		Yield:         yield,
		Ingredients:   ingredientList(recipe),
		Instructions:  NormalizeInstructions(recipe["recipeInstructions"]),
		Images:        images,
		Categories:    stringList(recipe["recipeCategory"]),
		Cuisine:       strings.Join(stringList(recipe["recipeCuisine"]), ", "),
		Dietary:       DietaryTags(splitKeywords(recipe["keywords"])),
		SiteName:      siteName(doc, pageURL),
		Author:        authorName(recipe["author"]),
		DatePublished: NormalizeDate(stringValue(recipe["datePublished"])),
		RawData:       raw,
	}
	if len(images) > 0 {
		draft.MainImageURL = images[0].URL
	}
	if draft.Title == "" || !draft.HasContent() {
		return nil
	}
	return draft
}

// ingredientList reads recipeIngredient, falling back to the older "ingredients" key.
func ingredientList(recipe map[string]any) []string {
	if list := stringList(recipe["recipeIngredient"]); len(list) > 0 {
		return list
	}
	if list := stringList(recipe["ingredients"]); len(list) > 0 {
		return list
	}
	return []string{}
}

// findRecipeObject scans JSON-LD blocks in document order and returns the first
// Recipe object along with its re-encoded JSON. Malformed blocks are skipped.
func findRecipeObject(doc *goquery.Document) (map[string]any, json.RawMessage) {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content := strings.TrimSpace(s.Text())
		if content == "" {
			return true
		}
		var block any
		if err := json.Unmarshal([]byte(content), &block); err != nil {
			return true
		}
		found = recipeIn(block)
		return found == nil
	})
	if found == nil {
		return nil, nil
	}
	raw, err := json.Marshal(found)
	if err != nil {
		return found, nil
	}
	return found, raw
}

// recipeIn looks for a Recipe in a single object, a top-level array, or an @graph container.
func recipeIn(block any) map[string]any {
	switch v := block.(type) {
	case []any:
		for _, item := range v {
			if r := recipeIn(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				if m, ok := item.(map[string]any); ok && hasType(m, recipeType) {
					return m
				}
			}
		}
		if hasType(v, recipeType) {
			return v
		}
	}
	return nil
}
