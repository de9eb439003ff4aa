package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/recipebox/internal/domain"
)

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://example.com/recipe-%d", i)
	}
	return out
}

func TestDrainHonorsConcurrencyBound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var maxProcessing atomic.Int64
	scraper := &fakeScraper{delay: 30 * time.Millisecond}
	scraper.onStart = func() {
		n, err := env.jobs.CountByStatus(ctx, domain.JobStatusProcessing)
		if err != nil {
			return
		}
		for {
			m := maxProcessing.Load()
			if n <= m || maxProcessing.CompareAndSwap(m, n) {
				return
			}
		}
	}
	p := env.processor(scraper, 3)

	if _, err := env.jobs.CreateBatch(ctx, urls(10)); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	stats := p.Drain(ctx)

	if stats.Completed != 10 || stats.Failed != 0 {
		t.Errorf("Drain() stats = %+v, want 10 completed", stats)
	}
	if got := scraper.maxSeen.Load(); got > 3 {
		t.Errorf("max concurrent scrapes = %d, want <= 3", got)
	}
	if got := maxProcessing.Load(); got > 3 {
		t.Errorf("max jobs in processing = %d, want <= 3", got)
	}
	jobStats, _ := env.jobs.Stats(ctx)
	if jobStats.Completed != 10 || jobStats.Pending != 0 || jobStats.Processing != 0 {
		t.Errorf("job stats = %+v", jobStats)
	}
	if n := env.recipeCount(t); n != 10 {
		t.Errorf("recipes = %d, want 10", n)
	}
}

func TestDrainDrainsMoreThanOneBatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := NewProcessor(env.jobs, env.library, &fakeScraper{}, &ProcessorConfig{Concurrency: 2, BatchSize: 2})

	if _, err := env.jobs.CreateBatch(ctx, urls(5)); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if stats := p.Drain(ctx); stats.Completed != 5 {
		t.Errorf("Completed = %d, want 5", stats.Completed)
	}
}

func TestSameURLImportedOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.processor(&fakeScraper{}, 3)

	jobs, err := env.jobs.CreateBatch(ctx, []string{"https://example.com/pasta", "https://example.com/pasta"})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	p.Drain(ctx)

	if n := env.recipeCount(t); n != 1 {
		t.Fatalf("recipes = %d, want 1", n)
	}
	var recipeIDs []string
	for _, j := range jobs {
		got, err := env.jobs.GetByID(ctx, j.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Status != domain.JobStatusCompleted || got.RecipeID == nil {
			t.Fatalf("job = %+v, want completed with recipe", got)
		}
		recipeIDs = append(recipeIDs, *got.RecipeID)
	}
	if recipeIDs[0] != recipeIDs[1] {
		t.Errorf("jobs reference different recipes: %v", recipeIDs)
	}

	// A later job for the same URL completes against the stored recipe without scraping.
	scraper := &fakeScraper{}
	later, _ := env.jobs.Create(ctx, "https://example.com/pasta")
	out, ran := env.processor(scraper, 3).Run(ctx, *later)
	if !ran || out.Err != nil || out.Method != "existing" || out.Recipe.ID != recipeIDs[0] {
		t.Errorf("Run() = %+v, %v", out, ran)
	}
	if scraper.callCount() != 0 {
		t.Errorf("scraper called %d times for an existing recipe", scraper.callCount())
	}
}

func TestFailedJobs(t *testing.T) {
	tests := []struct {
		name    string
		scraper *fakeScraper
		wantMsg string
	}{
		{
			name:    "extraction failure",
			scraper: &fakeScraper{fail: map[string]string{"https://example.com/x": domain.ErrExtraction.Error()}},
			wantMsg: domain.ErrExtraction.Error(),
		},
		{
			name:    "panic",
			scraper: &fakeScraper{panicOn: "https://example.com/x"},
			wantMsg: "internal error: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			jobs, _ := env.jobs.CreateBatch(ctx, []string{"https://example.com/x", "https://example.com/ok"})

			stats := env.processor(tt.scraper, 3).Drain(ctx)
			if stats.Failed != 1 || stats.Completed != 1 {
				t.Errorf("stats = %+v, want 1 failed 1 completed", stats)
			}

			got, _ := env.jobs.GetByID(ctx, jobs[0].ID)
			if got.Status != domain.JobStatusFailed || !strings.Contains(got.ErrorMessage, tt.wantMsg) {
				t.Errorf("job = %+v, want failed with %q", got, tt.wantMsg)
			}
			if got.RecipeID != nil || got.CompletedAt == nil {
				t.Errorf("failed job recipe/completed_at = %v/%v", got.RecipeID, got.CompletedAt)
			}
			if n := env.recipeCount(t); n != 1 {
				t.Errorf("recipes = %d, want 1", n)
			}
		})
	}
}

func TestTriggerIsSingleFlight(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	scraper := &fakeScraper{gate: make(chan struct{})}
	p := env.processor(scraper, 2)

	if _, err := env.jobs.CreateBatch(ctx, urls(4)); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	p.Trigger()
	p.Trigger()
	p.Trigger()
	if !p.Running() {
		t.Fatal("Running() = false after Trigger")
	}

	deadline := time.Now().Add(2 * time.Second)
	for scraper.inFlight.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(scraper.gate)
	p.Wait()

	if p.Running() {
		t.Error("Running() = true after Wait")
	}
	if got := scraper.maxSeen.Load(); got > 2 {
		t.Errorf("max concurrent scrapes = %d, want <= 2", got)
	}
	if got := scraper.callCount(); got != 4 {
		t.Errorf("scrapes = %d, want 4 (no job scraped twice)", got)
	}
	stats, _ := env.jobs.Stats(ctx)
	if stats.Completed != 4 {
		t.Errorf("stats = %+v, want 4 completed", stats)
	}
}

func TestStartFailsStaleJobs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	jobs, _ := env.jobs.CreateBatch(ctx, urls(2))
	if ok, _ := env.jobs.Claim(ctx, jobs[0].ID); !ok {
		t.Fatal("Claim() lost")
	}

	p := env.processor(&fakeScraper{}, 3)
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	p.Wait()

	stale, _ := env.jobs.GetByID(ctx, jobs[0].ID)
	if stale.Status != domain.JobStatusFailed || stale.ErrorMessage != StaleJobMessage {
		t.Errorf("stale job = %+v", stale)
	}
	fresh, _ := env.jobs.GetByID(ctx, jobs[1].ID)
	if fresh.Status != domain.JobStatusCompleted {
		t.Errorf("pending job = %+v, want completed", fresh)
	}
}

func TestCompletionWriteFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	err := env.db.Exec(`CREATE TRIGGER reject_completion BEFORE UPDATE ON import_jobs
		WHEN NEW.status = 'completed'
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`).Error
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	svc := NewImportService(env.jobs, env.processor(&fakeScraper{}, 3))

	_, err = svc.ImportURL(ctx, "https://example.com/pasta")
	var failure *ImportFailure
	if !errors.As(err, &failure) || !strings.Contains(failure.Message, "record completion") {
		t.Fatalf("ImportURL() error = %v, want completion failure", err)
	}

	job, err := env.jobs.GetByID(ctx, failure.JobID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != domain.JobStatusFailed || !strings.Contains(job.ErrorMessage, "disk I/O error") {
		t.Errorf("job = %s %q, want failed with store error", job.Status, job.ErrorMessage)
	}
}
