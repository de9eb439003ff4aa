package extract

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHeuristicClassMarkup(t *testing.T) {
	head := `<title>Site | Pancakes</title>
		<meta name="description" content="Fluffy pancakes">
		<meta property="og:image" content="https://example.com/og.jpg">`
	body := `<h1> Pancakes </h1>
		<img class="site-logo" src="/logo.png">
		<img class="recipe-photo" src="/img/icon-pan.png" alt="icon">
		<img class="recipe-photo" src="/img/pancakes.jpg" alt="Stack">
		<ul class="ingredients">
			<li class="ingredient">1 cup flour</li>
			<li class="ingredient">2 eggs</li>
		</ul>
		<ol class="directions">
			<li>Mix.</li>
			<li>Fry.</li>
		</ol>
		<time itemprop="prepTime" datetime="PT10M">10 minutes</time>`

	draft := Heuristic(page(head, body), "https://example.com/pancakes")
	if draft == nil {
		t.Fatal("expected a draft")
	}
	if draft.Title != "Pancakes" {
		t.Errorf("Title = %q, want h1 text", draft.Title)
	}
	if draft.Description != "Fluffy pancakes" {
		t.Errorf("Description = %q", draft.Description)
	}
	if strings.Join(draft.Ingredients, "|") != "1 cup flour|2 eggs" {
		t.Errorf("Ingredients = %q", draft.Ingredients)
	}
	if len(draft.Instructions) != 2 || draft.Instructions[1].Step.Text != "Fry." || draft.Instructions[1].Step.Order != 2 {
		t.Errorf("Instructions = %+v", draft.Instructions)
	}
	if len(draft.Images) != 1 || draft.Images[0].URL != "https://example.com/img/pancakes.jpg" || draft.Images[0].Alt != "Stack" {
		t.Errorf("Images = %+v", draft.Images)
	}
	if draft.MainImageURL != draft.Images[0].URL {
		t.Errorf("MainImageURL = %q", draft.MainImageURL)
	}
	if draft.PrepTime == nil || *draft.PrepTime != 10 {
		t.Errorf("PrepTime = %v, want 10", draft.PrepTime)
	}
	if draft.SiteName != "example.com" {
		t.Errorf("SiteName = %q", draft.SiteName)
	}

	var raw map[string]string
	if err := json.Unmarshal(draft.RawData, &raw); err != nil {
		t.Fatalf("RawData: %v", err)
	}
	if raw["method"] != "html-fallback" || !strings.HasPrefix(raw["html"], "<!DOCTYPE html>") {
		t.Errorf("RawData = %v", raw)
	}
}

func TestHeuristicItemprop(t *testing.T) {
	body := `<h1>Toast</h1>
		<span itemprop="recipeIngredient">bread</span>
		<span itemprop="recipeIngredient">butter</span>`

	draft := Heuristic(page("", body), "https://example.com/toast")
	if draft == nil {
		t.Fatal("expected a draft")
	}
	if len(draft.Ingredients) != 2 {
		t.Errorf("Ingredients = %q", draft.Ingredients)
	}
	if len(draft.Instructions) != 0 {
		t.Errorf("Instructions = %+v, want none", draft.Instructions)
	}
}

func TestHeuristicListMarkup(t *testing.T) {
	testCases := []struct {
		name             string
		body             string
		wantIngredients  string
		wantInstructions string
	}{
		{
			name: "class containers",
			body: `<ul class="ingredient-list"><li>water</li><li>salt</li></ul>
				<ol class="recipe-instructions"><li>Boil the water</li><li>Serve</li></ol>`,
			wantIngredients:  "water|salt",
			wantInstructions: "Boil the water|Serve",
		},
		{
			name: "itemprop containers",
			body: `<ul itemprop="ingredients"><li>water</li><li>salt</li></ul>
				<ol itemprop="recipeInstructions"><li>Boil the water</li><li>Serve</li></ol>`,
			wantIngredients:  "water|salt",
			wantInstructions: "Boil the water|Serve",
		},
		{
			name: "itemprop leaves with itemprop step list",
			body: `<ul><li itemprop="recipeIngredient">water</li><li itemprop="recipeIngredient">salt</li></ul>
				<ol itemprop="recipeInstructions"><li>Boil the water</li><li>Serve</li></ol>`,
			wantIngredients:  "water|salt",
			wantInstructions: "Boil the water|Serve",
		},
		{
			name: "itemprop step paragraphs",
			body: `<span itemprop="recipeIngredient">water</span>
				<p itemprop="recipeInstructions">Boil the water</p>
				<p itemprop="recipeInstructions">Serve</p>`,
			wantIngredients:  "water",
			wantInstructions: "Boil the water|Serve",
		},
		{
			name: "container wrapping leaf matches",
			body: `<div class="ingredients"><h2>You need</h2><ul>
					<li class="ingredient">water</li><li class="ingredient">salt</li>
				</ul></div>
				<div class="instructions"><ol><li>Boil the water</li><li>Serve</li></ol></div>`,
			wantIngredients:  "water|salt",
			wantInstructions: "Boil the water|Serve",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			draft := Heuristic(page("", "<h1>Soup</h1>"+tc.body), "https://example.com/soup")
			if draft == nil {
				t.Fatal("expected a draft")
			}
			if got := strings.Join(draft.Ingredients, "|"); got != tc.wantIngredients {
				t.Errorf("Ingredients = %q, want %q", got, tc.wantIngredients)
			}
			steps := make([]string, len(draft.Instructions))
			for i, in := range draft.Instructions {
				steps[i] = in.Step.Text
			}
			if got := strings.Join(steps, "|"); got != tc.wantInstructions {
				t.Errorf("Instructions = %q, want %q", got, tc.wantInstructions)
			}
		})
	}
}

func TestHeuristicFallbacks(t *testing.T) {
	head := `<meta property="og:title" content="OG Soup">
		<meta property="og:description" content="OG description">
		<meta property="og:image" content="/og.jpg">
		<meta property="og:site_name" content="Soup Site">`
	body := `<div id="instructions-block"><ul><li>Boil.</li></ul></div>`

	draft := Heuristic(page(head, body), "https://example.com/soup")
	if draft == nil {
		t.Fatal("expected a draft")
	}
	if draft.Title != "OG Soup" {
		t.Errorf("Title = %q, want og:title", draft.Title)
	}
	if draft.Description != "OG description" {
		t.Errorf("Description = %q", draft.Description)
	}
	if len(draft.Instructions) != 1 || draft.Instructions[0].Step.Text != "Boil." {
		t.Errorf("Instructions = %+v", draft.Instructions)
	}
	if len(draft.Images) != 1 || draft.Images[0].URL != "https://example.com/og.jpg" {
		t.Errorf("Images = %+v", draft.Images)
	}
	if draft.SiteName != "Soup Site" {
		t.Errorf("SiteName = %q", draft.SiteName)
	}
}

func TestHeuristicNoCandidate(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{
			name: "no recipe markup",
			html: page("<title>About us</title>", "<h1>About us</h1><p>We write things.</p>"),
		},
		{
			name: "ingredients without title",
			html: page("", `<ul><li class="ingredient">salt</li></ul>`),
		},
		{
			name: "empty document",
			html: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if draft := Heuristic(tc.html, "https://example.com/x"); draft != nil {
				t.Errorf("expected nil, got %+v", draft)
			}
		})
	}
}

func TestFallbackRawDataTruncates(t *testing.T) {
	html := strings.Repeat("é", 600)
	raw := fallbackRawData(html)
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded["html"]) > rawHTMLLimit {
		t.Errorf("snippet length %d exceeds %d", len(decoded["html"]), rawHTMLLimit)
	}
	if decoded["html"] != strings.Repeat("é", 500) {
		t.Errorf("snippet should end on a rune boundary")
	}
}
