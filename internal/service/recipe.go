package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	// ErrRecipeNotFound is returned when no recipe matches the ID.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrSemanticDisabled is returned for semantic search when no index is configured.
	ErrSemanticDisabled = errors.New("semantic search is not enabled")
)

// InputError reports a request the caller must fix.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// RecipeService manages the stored recipe library.
type RecipeService struct {
	recipes *repository.RecipeRepository
	tags    *repository.TagRepository
	index   *RecipeIndex
	now     func() time.Time
}

// NewRecipeService creates a new recipe service.
// Parameters:
//   - recipes: recipe repository.
//   - tags: tag repository.
//   - index: optional semantic index; nil disables semantic search.
// Returns:
//   - *RecipeService: initialized service.
func NewRecipeService(recipes *repository.RecipeRepository, tags *repository.TagRepository, index *RecipeIndex) *RecipeService {
	return &RecipeService{recipes: recipes, tags: tags, index: index, now: time.Now}
}

// SemanticEnabled reports whether semantic search is available.
func (s *RecipeService) SemanticEnabled() bool {
	return s.index != nil
}

// FindByURL returns the stored recipe for url, or nil if there is none.
func (s *RecipeService) FindByURL(ctx context.Context, url string) (*domain.Recipe, error) {
	rec, err := s.recipes.GetByURL(ctx, url)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "lookup recipe", Err: err}
	}
	return rec, nil
}

// SaveScraped persists a scraped recipe with its images.
// If another job stored the same URL first, the existing recipe is returned instead.
func (s *RecipeService) SaveScraped(ctx context.Context, scraped *domain.ScrapedRecipe) (*domain.Recipe, error) {
	rec := recipeFromScraped(scraped, s.now().UTC())

	if err := s.recipes.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, lookupErr := s.recipes.GetByURL(ctx, rec.URL)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return nil, &domain.PersistenceError{Op: "create recipe", Err: err}
	}

	ctx = logger.SetRecipeID(ctx, rec.ID)
	logger.With(logger.Fields{logger.FieldCount: len(rec.Images)}).Info(ctx, "Recipe stored")

	if s.index != nil {
		if err := s.index.Add(ctx, rec); err != nil {
			logger.CtxWarn(ctx, "Failed to index recipe: %v", err)
		}
	}
	return rec, nil
}

// recipeFromScraped maps a validated draft and its stored images onto a new Recipe.
func recipeFromScraped(sr *domain.ScrapedRecipe, now time.Time) *domain.Recipe {
	id := uuid.NewString()
	d := sr.RecipeDraft

	images := make([]domain.RecipeImage, len(sr.DownloadedImages))
	mainImage := d.MainImageURL
	for i, img := range sr.DownloadedImages {
		images[i] = domain.RecipeImage{
			ID:        uuid.NewString(),
			RecipeID:  id,
			URL:       img.OriginalURL,
			LocalPath: img.LocalPath,
			Alt:       img.Alt,
			Position:  i + 1,
			CreatedAt: now,
		}
		if img.OriginalURL == d.MainImageURL {
			mainImage = img.LocalPath
		}
	}

	var raw domain.RawJSON
	if len(d.RawData) > 0 {
		raw = domain.RawJSON(d.RawData)
	}

	return &domain.Recipe{
		ID:            id,
		URL:           d.URL,
		Title:         d.Title,
		Description:   d.Description,
		PrepTime:      d.PrepTime,
		CookTime:      d.CookTime,
		TotalTime:     d.TotalTime,
		Servings:      d.Servings,
		Yield:         d.Yield,
		Ingredients:   domain.StringArray(nonNil(d.Ingredients)),
		Instructions:  d.Instructions,
		MainImageURL:  mainImage,
		Categories:    domain.StringArray(nonNil(d.Categories)),
		Cuisine:       d.Cuisine,
		Dietary:       domain.StringArray(nonNil(d.Dietary)),
		SiteName:      d.SiteName,
		Author:        d.Author,
		DatePublished: parsePublished(d.DatePublished),
		RawData:       raw,
		Images:        images,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func parsePublished(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ListQuery selects a page of the library.
type ListQuery struct {
	Page     int
	Limit    int
	Category string
	Dietary  string
	Favorite *bool
}

// RecipePage is one page of recipes.
type RecipePage struct {
	Recipes []domain.Recipe `json:"recipes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// List returns recipes newest first.
func (s *RecipeService) List(ctx context.Context, q ListQuery) (*RecipePage, error) {
	page, limit := normalizePaging(q.Page, q.Limit)
	recipes, total, err := s.recipes.List(ctx, repository.RecipeFilter{
		Category: q.Category,
		Dietary:  q.Dietary,
		Favorite: q.Favorite,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	return &RecipePage{Recipes: recipes, Total: total, Page: page, Limit: limit}, nil
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// Get returns one recipe with images and tags.
func (s *RecipeService) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	rec, err := s.recipes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRecipeNotFound
	}
	return rec, err
}

// RecipeUpdate holds the user-editable fields. Nil fields are left unchanged.
type RecipeUpdate struct {
	Rating     *int      `json:"rating"`
	Notes      *string   `json:"notes"`
	IsFavorite *bool     `json:"isFavorite"`
	Tags       *[]string `json:"tags"`
}

// Update applies a partial update and returns the updated recipe.
func (s *RecipeService) Update(ctx context.Context, id string, u RecipeUpdate) (*domain.Recipe, error) {
	fields := make(map[string]interface{})
	if u.Rating != nil {
		if *u.Rating < 1 || *u.Rating > 5 {
			return nil, invalid("rating must be between 1 and 5")
		}
		fields["rating"] = *u.Rating
	}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}
	if u.IsFavorite != nil {
		fields["is_favorite"] = *u.IsFavorite
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now().UTC()
		if err := s.recipes.UpdateFields(ctx, id, fields); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrRecipeNotFound
			}
			return nil, &domain.PersistenceError{Op: "update recipe", Err: err}
		}
	}
	if u.Tags != nil {
		tags, err := s.tags.FindOrCreate(ctx, *u.Tags)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "create tags", Err: err}
		}
		if err := s.recipes.ReplaceTags(ctx, id, tags); err != nil {
			return nil, &domain.PersistenceError{Op: "replace tags", Err: err}
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a recipe and its index entry.
// Image objects stay in content storage; their keys are shared by every recipe using the same image URL.
func (s *RecipeService) Delete(ctx context.Context, id string) error {
	if err := s.recipes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRecipeNotFound
		}
		return &domain.PersistenceError{Op: "delete recipe", Err: err}
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			logger.CtxWarn(logger.SetRecipeID(ctx, id), "Failed to remove recipe from index: %v", err)
		}
	}
	return nil
}

// SearchQuery describes a library search.
type SearchQuery struct {
	Query    string
	Limit    int
	Semantic bool
	Category string
	Dietary  string
}

// SearchResult is a ranked recipe; Score is only set for semantic matches.
type SearchResult struct {
	Recipe domain.Recipe `json:"recipe"`
	Score  float32       `json:"score,omitempty"`
}

// Search matches recipes by keyword, or by meaning when Semantic is set.
func (s *RecipeService) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, invalid("query is required")
	}
	_, limit := normalizePaging(1, q.Limit)

	if !q.Semantic {
		recipes, err := s.recipes.Search(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search recipes: %w", err)
		}
		results := make([]SearchResult, len(recipes))
		for i, r := range recipes {
			results[i] = SearchResult{Recipe: r}
		}
		return results, nil
	}

	if s.index == nil {
		return nil, ErrSemanticDisabled
	}
	hits, err := s.index.Search(ctx, query, limit, &repository.VectorFilter{Category: q.Category, Dietary: q.Dietary})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float32, len(hits))
	for i, h := range hits {
		ids[i] = h.RecipeID
		scores[h.RecipeID] = h.Score
	}
	recipes, err := s.recipes.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	results := make([]SearchResult, len(recipes))
	for i, r := range recipes {
		results[i] = SearchResult{Recipe: r, Score: scores[r.ID]}
	}
	return results, nil
}

// Tags returns every tag with its recipe count.
func (s *RecipeService) Tags(ctx context.Context) ([]domain.TagCount, error) {
	tags, err := s.tags.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if tags == nil {
		tags = []domain.TagCount{}
	}
	return tags, nil
}

// Stats returns library totals for the health view.
func (s *RecipeService) Stats(ctx context.Context) (int64, error) {
	return s.recipes.Count(ctx)
}
