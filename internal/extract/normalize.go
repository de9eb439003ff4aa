package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/recipebox/internal/domain"
)

var (
	spaceRe      = regexp.MustCompile(`\s+`)
	leadingIntRe = regexp.MustCompile(`^\D*?(\d+)`)
)

// dietaryVocabulary is matched case-insensitively against recipe keywords.
var dietaryVocabulary = []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}

// norm trims and collapses internal whitespace.
func norm(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func meta(doc *goquery.Document, key string) string {
	if v, ok := doc.Find(fmt.Sprintf(`meta[property="%s"]`, key)).Attr("content"); ok && norm(v) != "" {
		return norm(v)
	}
	if v, ok := doc.Find(fmt.Sprintf(`meta[name="%s"]`, key)).Attr("content"); ok && norm(v) != "" {
		return norm(v)
	}
	return ""
}

// siteName returns og:site_name, falling back to the page host.
func siteName(doc *goquery.Document, pageURL string) string {
	if name := meta(doc, "og:site_name"); name != "" {
		return name
	}
	if u, err := url.Parse(pageURL); err == nil {
		return u.Hostname()
	}
	return ""
}

// resolveURL makes ref absolute against base. Unresolvable refs are returned as-is.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// NormalizeImages converts the many shapes of a structured image field into an ordered list.
// Accepted: a string, a list of strings, a list of {url, caption} objects, or a single object.
func NormalizeImages(v any, pageURL string) []domain.ImageRef {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		items = t
	default:
		items = []any{t}
	}

	images := make([]domain.ImageRef, 0, len(items))
	for _, item := range items {
		var ref domain.ImageRef
		switch img := item.(type) {
		case string:
			ref.URL = img
		case map[string]any:
			ref.URL = firstString(img["url"], img["contentUrl"])
			ref.Alt = firstString(img["caption"], img["name"])
		}
		ref.URL = resolveURL(pageURL, ref.URL)
		if ref.URL == "" {
			continue
		}
		images = append(images, ref)
	}
	return images
}

// NormalizeInstructions converts structured instructions into canonical steps and sections.
// Order numbers are 1-based per level and follow source order.
func NormalizeInstructions(v any) domain.Instructions {
	var items []any
	switch t := v.(type) {
	case nil:
		return domain.Instructions{}
	case string:
		for _, line := range strings.Split(t, "\n") {
			if line = norm(line); line != "" {
				items = append(items, line)
			}
		}
	case []any:
		items = t
	default:
		items = []any{t}
	}

	out := make(domain.Instructions, 0, len(items))
	for _, item := range items {
		order := len(out) + 1
		switch step := item.(type) {
		case string:
			if text := norm(step); text != "" {
				out = append(out, domain.NewStep(text, order))
			}
		case map[string]any:
			if hasType(step, "HowToSection") {
				out = append(out, domain.NewSection(norm(stringValue(step["name"])), sectionSteps(step["itemListElement"]), order))
				continue
			}
			if text := stepText(step); text != "" {
				out = append(out, domain.NewStep(text, order))
			}
		}
	}
	return out
}

func sectionSteps(v any) []domain.Step {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case nil:
		return []domain.Step{}
	default:
		items = []any{t}
	}
	steps := make([]domain.Step, 0, len(items))
	for _, item := range items {
		var text string
		switch s := item.(type) {
		case string:
			text = norm(s)
		case map[string]any:
			text = stepText(s)
		}
		if text != "" {
			steps = append(steps, domain.Step{Text: text, Order: len(steps) + 1})
		}
	}
	return steps
}

func stepText(m map[string]any) string {
	if text := norm(stringValue(m["text"])); text != "" {
		return text
	}
	return norm(stringValue(m["name"]))
}

// DietaryTags returns the keywords mentioning a known dietary label, in keyword order.
func DietaryTags(keywords []string) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		for _, diet := range dietaryVocabulary {
			if !strings.Contains(lower, diet) {
				continue
			}
			if _, ok := seen[lower]; !ok {
				seen[lower] = struct{}{}
				tags = append(tags, kw)
			}
			break
		}
	}
	return tags
}

// splitKeywords accepts a comma-separated string or a list of strings.
func splitKeywords(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, strings.Split(s, ",")...)
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw = norm(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// stringList accepts a string or a list and returns the non-empty strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := norm(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = norm(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

// authorName handles "name", {"name": ...} and lists of either.
func authorName(v any) string {
	switch t := v.(type) {
	case string:
		return norm(t)
	case map[string]any:
		return norm(stringValue(t["name"]))
	case []any:
		for _, item := range t {
			if name := authorName(item); name != "" {
				return name
			}
		}
	}
	return ""
}

// recipeYield splits recipeYield into servings and a display yield.
func recipeYield(v any) (*int, string) {
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			n := int(t)
			return &n, strconv.Itoa(n)
		}
		return nil, ""
	case string:
		text := norm(t)
		return leadingInt(text), text
	case []any:
		var servings *int
		var text string
		for _, item := range t {
			s, y := recipeYield(item)
			if servings == nil {
				servings = s
			}
			if text == "" || (len(y) > len(text)) {
				text = y
			}
		}
		return servings, text
	}
	return nil, ""
}

func leadingInt(s string) *int {
	m := leadingIntRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return nil
	}
	return &n
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeDate returns s as an ISO date (YYYY-MM-DD) or RFC3339 timestamp, or "" when unparsable.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for i, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			return t.Format("2006-01-02")
		}
		if i == 0 {
			return t.Format(time.RFC3339)
		}
		return t.UTC().Format(time.RFC3339)
	}
	return ""
}

func hasType(m map[string]any, want string) bool {
	for _, key := range []string{"@type", "type"} {
		switch t := m[key].(type) {
		case string:
			if t == want {
				return true
			}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok && s == want {
					return true
				}
			}
		}
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := strings.TrimSpace(stringValue(v)); s != "" {
			return s
		}
	}
	return ""
}
