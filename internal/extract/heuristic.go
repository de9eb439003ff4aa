package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/recipebox/internal/domain"
)

const rawHTMLLimit = 1000

const (
	ingredientSelector      = `.ingredient, .recipe-ingredient, [class*="ingredient"], [itemprop="recipeIngredient"], [itemprop="ingredients"]`
	ingredientItemSelector  = `[class*="ingredient"] li, [id*="ingredient"] li, [itemprop="ingredients"] li, [itemprop="recipeIngredient"] li`
	instructionSelector     = `.instruction, .recipe-instruction, [class*="instruction"], [class*="direction"], [itemprop="recipeInstructions"]`
	instructionItemSelector = `[class*="instruction"] li, [id*="instruction"] li, [class*="direction"] li, [id*="direction"] li, [itemprop="recipeInstructions"] li`
	recipeImageSelector     = `img[class*="recipe"], img[id*="recipe"], [itemprop="image"] img, img[class*="featured"]`
)

// textStrategy yields a single field value, or "" when it finds nothing.
type textStrategy func(doc *goquery.Document) string

// listStrategy yields an ordered list, or nil when it finds nothing.
type listStrategy func(doc *goquery.Document) []string

// imageStrategy yields an ordered image list, or nil when it finds nothing.
type imageStrategy func(doc *goquery.Document, pageURL string) []domain.ImageRef

var (
	titleChain = []textStrategy{
		firstText("h1"),
		metaContent("og:title"),
		firstText("title"),
	}
	descriptionChain = []textStrategy{
		metaContent("description"),
		metaContent("og:description"),
	}
	ingredientChain = []listStrategy{
		leafTexts(ingredientSelector),
		allTexts(ingredientItemSelector),
	}
	instructionChain = []listStrategy{
		leafTexts(instructionSelector),
		allTexts(instructionItemSelector),
	}
	imageChain = []imageStrategy{
		recipeImages,
		ogImage,
	}
	prepTimeChain = []textStrategy{itempropDatetime("prepTime")}
	cookTimeChain = []textStrategy{itempropDatetime("cookTime")}
)

// Heuristic guesses a recipe from page markup when no structured data is present.
// It returns nil when the title is empty or when both ingredients and instructions are empty.
func Heuristic(html, pageURL string) *domain.RecipeDraft {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return heuristicFromDoc(doc, html, pageURL)
}

func heuristicFromDoc(doc *goquery.Document, html, pageURL string) *domain.RecipeDraft {
	title := firstTextOf(doc, titleChain)
	ingredients := firstListOf(doc, ingredientChain)
	steps := firstListOf(doc, instructionChain)
	if title == "" || (len(ingredients) == 0 && len(steps) == 0) {
		return nil
	}

	instructions := make(domain.Instructions, 0, len(steps))
	for i, text := range steps {
		instructions = append(instructions, domain.NewStep(text, i+1))
	}
	if ingredients == nil {
		ingredients = []string{}
	}

	var images []domain.ImageRef
	for _, strategy := range imageChain {
		if images = strategy(doc, pageURL); len(images) > 0 {
			break
		}
	}

	draft := &domain.RecipeDraft{
		Title:        title,
		Description:  firstTextOf(doc, descriptionChain),
		URL:          pageURL,
		PrepTime:     durationPtr(firstTextOf(doc, prepTimeChain)),
		CookTime:     durationPtr(firstTextOf(doc, cookTimeChain)),
		Ingredients:  ingredients,
		Instructions: instructions,
		Images:       images,
		SiteName:     siteName(doc, pageURL),
		RawData:      fallbackRawData(html),
	}
	if len(images) > 0 {
		draft.MainImageURL = images[0].URL
	}
	return draft
}

func firstTextOf(doc *goquery.Document, chain []textStrategy) string {
	for _, strategy := range chain {
		if v := strategy(doc); v != "" {
			return v
		}
	}
	return ""
}

func firstListOf(doc *goquery.Document, chain []listStrategy) []string {
	for _, strategy := range chain {
		if v := strategy(doc); len(v) > 0 {
			return v
		}
	}
	return nil
}

func firstText(selector string) textStrategy {
	return func(doc *goquery.Document) string {
		return norm(doc.Find(selector).First().Text())
	}
}

func metaContent(key string) textStrategy {
	return func(doc *goquery.Document) string {
		return meta(doc, key)
	}
}

func itempropDatetime(prop string) textStrategy {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(`[itemprop="` + prop + `"]`).First().Attr("datetime")
		return strings.TrimSpace(v)
	}
}

// allTexts returns the non-empty text of every match in document order.
func allTexts(selector string) listStrategy {
	return func(doc *goquery.Document) []string {
		var out []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := norm(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
}

// leafTexts is allTexts restricted to matches that wrap neither another match
// nor list items. A container of list items, class or itemprop alike, yields
// nothing here and is read item by item by the list-item pass.
func leafTexts(selector string) listStrategy {
	return func(doc *goquery.Document) []string {
		var out []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if s.Find(selector).Length() > 0 || s.Find("li").Length() > 0 {
				return
			}
			if text := norm(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
}

func recipeImages(doc *goquery.Document, pageURL string) []domain.ImageRef {
	var images []domain.ImageRef
	doc.Find(recipeImageSelector).Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" || strings.Contains(src, "logo") || strings.Contains(src, "icon") {
			return
		}
		alt, _ := s.Attr("alt")
		images = append(images, domain.ImageRef{URL: resolveURL(pageURL, src), Alt: norm(alt)})
	})
	return images
}

func ogImage(doc *goquery.Document, pageURL string) []domain.ImageRef {
	if src := meta(doc, "og:image"); src != "" {
		return []domain.ImageRef{{URL: resolveURL(pageURL, src)}}
	}
	return nil
}

func fallbackRawData(html string) json.RawMessage {
	snippet := html
	if len(snippet) > rawHTMLLimit {
		cut := rawHTMLLimit
		for cut > 0 && !utf8.RuneStart(html[cut]) {
			cut--
		}
		snippet = html[:cut]
	}
	raw, err := json.Marshal(map[string]string{"method": "html-fallback", "html": snippet})
	if err != nil {
		return nil
	}
	return raw
}
