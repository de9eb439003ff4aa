package service

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/recipebox/internal/config"
	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/repository"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	jobs    *repository.ImportJobRepository
	recipes *repository.RecipeRepository
	library *RecipeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "recipes.db"),
		MaxIdleConns: 1,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	recipes := repository.NewRecipeRepository(db)
	return &testEnv{
		db:      db,
		jobs:    repository.NewImportJobRepository(db),
		recipes: recipes,
		library: NewRecipeService(recipes, repository.NewTagRepository(db), nil),
	}
}

func (e *testEnv) processor(scraper Scraper, concurrency int) *Processor {
	return NewProcessor(e.jobs, e.library, scraper, &ProcessorConfig{
		Concurrency: concurrency,
		BatchSize:   concurrency,
	})
}

func (e *testEnv) recipeCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.recipes.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

// fakeScraper returns a valid recipe per URL and records concurrency.
type fakeScraper struct {
	delay   time.Duration
	fail    map[string]string
	panicOn string
	gate    chan struct{}
	onStart func()

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (f *fakeScraper) Scrape(ctx context.Context, url string) *ScrapeResult {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.onStart != nil {
		f.onStart()
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if url == f.panicOn {
		panic("boom")
	}
	if msg, ok := f.fail[url]; ok {
		return &ScrapeResult{Success: false, Error: msg}
	}
	return &ScrapeResult{
		Success: true,
		Method:  MethodStructured,
		Data: &domain.ScrapedRecipe{
			RecipeDraft: domain.RecipeDraft{
				Title:        "Recipe " + url,
				URL:          url,
				Ingredients:  []string{"flour", "eggs"},
				Instructions: domain.Instructions{domain.NewStep("Mix.", 1)},
			},
			DownloadedImages: []domain.DownloadedImage{},
		},
	}
}

func (f *fakeScraper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
