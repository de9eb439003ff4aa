package service

import (
	"context"
	"time"

	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/extract"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/validation"
)

// Extraction methods reported on a successful scrape.
const (
	MethodStructured = "structured"
	MethodHeuristic  = "heuristic"
)

// ScrapeResult is the single outcome of scraping one URL.
// Success implies Data is set; failure implies Data is nil and Error holds the reason.
type ScrapeResult struct {
	Success bool                  `json:"success"`
	Data    *domain.ScrapedRecipe `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
	Method  string                `json:"method,omitempty"`
}

// Scraper turns a URL into a validated recipe.
type Scraper interface {
	Scrape(ctx context.Context, url string) *ScrapeResult
}

// ScrapeService fetches a page, extracts a recipe draft, validates it and stores its images.
type ScrapeService struct {
	pages  PageFetcher
	images ImageFetcher
}

// NewScrapeService creates a new scrape service.
func NewScrapeService(pages PageFetcher, images ImageFetcher) *ScrapeService {
	return &ScrapeService{pages: pages, images: images}
}

// Scrape runs the structured extractor, then the heuristic one if that found nothing.
// Fetch, extraction and validation failures all come back as an unsuccessful result.
func (s *ScrapeService) Scrape(ctx context.Context, url string) *ScrapeResult {
	start := time.Now()
	ctx = logger.SetURL(ctx, url)

	html, err := s.pages.FetchPage(ctx, url)
	if err != nil {
		logger.With(logger.Fields{logger.FieldStatus: "fetch_failed"}).WithDuration(start).Warn(ctx, "Page fetch failed: %v", err)
		return failed(err)
	}

	draft, method := extractDraft(html, url)
	if draft == nil {
		err := &domain.ExtractionError{URL: url}
		logger.With(logger.Fields{logger.FieldStatus: "no_recipe"}).WithDuration(start).Info(ctx, "No recipe found")
		return failed(err)
	}

	if err := validation.Validate(draft); err != nil {
		logger.With(logger.Fields{logger.FieldMethod: method, logger.FieldStatus: "invalid"}).Warn(ctx, "Draft rejected: %v", err)
		return failed(err)
	}

	downloaded := s.images.FetchAll(ctx, draft.Images)

	logger.With(logger.Fields{logger.FieldMethod: method}).
		WithCount(len(downloaded)).
		WithDuration(start).
		Info(ctx, "Scraped recipe %q", draft.Title)

	return &ScrapeResult{
		Success: true,
		Data:    &domain.ScrapedRecipe{RecipeDraft: *draft, DownloadedImages: downloaded},
		Method:  method,
	}
}

// extractDraft returns the first draft the extractor chain produces.
func extractDraft(html, url string) (*domain.RecipeDraft, string) {
	if draft := extract.Structured(html, url); draft != nil {
		return draft, MethodStructured
	}
	if draft := extract.Heuristic(html, url); draft != nil {
		return draft, MethodHeuristic
	}
	return nil, ""
}

func failed(err error) *ScrapeResult {
	return &ScrapeResult{Success: false, Error: err.Error()}
}
