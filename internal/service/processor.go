package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/repository"
	"golang.org/x/sync/semaphore"
)

const (
	defaultConcurrency = 3
	defaultBatchPause  = 2 * time.Second

	// StaleJobMessage is recorded on jobs found in processing at startup.
	StaleJobMessage = "interrupted before completion"
)

// ProcessorConfig holds configuration for the bulk job processor.
type ProcessorConfig struct {
	Concurrency int
	BatchSize   int
	BatchPause  time.Duration
}

// Processor drains pending import jobs through the scraper.
// All scrapes share one semaphore, so no more than Concurrency run at once
// however many drains or single imports are active.
type Processor struct {
	jobs    *repository.ImportJobRepository
	recipes *RecipeService
	scraper Scraper
	sem     *semaphore.Weighted

	batchSize int
	pause     time.Duration

	mu      sync.Mutex
	running bool
	rerun   bool
	wg      sync.WaitGroup
}

// NewProcessor creates a bulk job processor.
// Parameters:
//   - jobs: import job store.
//   - recipes: recipe service used for idempotence checks and persistence.
//   - scraper: scraper run for each job.
//   - cfg: concurrency and batching settings; zero values take the defaults.
// Returns:
//   - *Processor: idle processor; call Start or Trigger to begin draining.
func NewProcessor(jobs *repository.ImportJobRepository, recipes *RecipeService, scraper Scraper, cfg *ProcessorConfig) *Processor {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = concurrency
	}
	pause := cfg.BatchPause
	if pause < 0 {
		pause = defaultBatchPause
	}
	return &Processor{
		jobs:      jobs,
		recipes:   recipes,
		scraper:   scraper,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		batchSize: batchSize,
		pause:     pause,
	}
}

// DrainStats summarizes one drain run.
type DrainStats struct {
	Processed int64
	Completed int64
	Failed    int64
	Skipped   int64
	StartTime time.Time
	EndTime   time.Time
}

// JobOutcome is the result of running one job.
type JobOutcome struct {
	Recipe *domain.Recipe
	Method string
	Err    error
}

// Start fails jobs a previous process left in processing, then drains in the background.
func (p *Processor) Start(ctx context.Context) error {
	n, err := p.jobs.FailStale(ctx, StaleJobMessage)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.With(logger.Fields{logger.FieldCount: n}).Warn(ctx, "Failed stale import jobs")
	}
	p.Trigger()
	return nil
}

// Trigger starts a background drain and returns immediately.
// If a drain is already running it is asked to run again once it finishes,
// so at most one background drain exists at a time.
func (p *Processor) Trigger() {
	p.mu.Lock()
	if p.running {
		p.rerun = true
		p.mu.Unlock()
		return
	}
	p.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.loop()
}

// Wait blocks until the background drain, if any, has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Running reports whether a background drain is in progress.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) loop() {
	defer p.wg.Done()
	ctx := logger.SetComponent(context.Background(), "processor")

	for {
		stats := p.Drain(ctx)
		logger.With(logger.Fields{
			"completed": stats.Completed,
			"failed":    stats.Failed,
			"skipped":   stats.Skipped,
		}).WithCount(int(stats.Processed)).
			With(logger.Fields{logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds()}).
			Info(ctx, "Drain finished")

		p.mu.Lock()
		if !p.rerun {
			p.running = false
			p.mu.Unlock()
			return
		}
		p.rerun = false
		p.mu.Unlock()
	}
}

// Drain processes pending jobs oldest first, batch by batch, until none remain.
// It pauses between batches and stops early if ctx is cancelled between batches.
// Jobs already started always run to completion.
func (p *Processor) Drain(ctx context.Context) *DrainStats {
	stats := &DrainStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	for {
		jobs, err := p.jobs.ListPending(ctx, p.batchSize)
		if err != nil {
			logger.CtxError(ctx, "Failed to list pending jobs: %v", err)
			return stats
		}
		if len(jobs) == 0 {
			return stats
		}

		var claimed atomic.Int64
		var wg sync.WaitGroup
		for _, job := range jobs {
			wg.Add(1)
			go func(job domain.ImportJob) {
				defer wg.Done()
				out, ok := p.runJob(ctx, job)
				if !ok {
					atomic.AddInt64(&stats.Skipped, 1)
					return
				}
				claimed.Add(1)
				atomic.AddInt64(&stats.Processed, 1)
				if out.Err != nil {
					atomic.AddInt64(&stats.Failed, 1)
				} else {
					atomic.AddInt64(&stats.Completed, 1)
				}
			}(job)
		}
		wg.Wait()

		if claimed.Load() == 0 {
			// Every job in the batch is owned elsewhere or the store is failing.
			return stats
		}

		remaining, err := p.jobs.CountByStatus(ctx, domain.JobStatusPending)
		if err != nil {
			logger.CtxError(ctx, "Failed to count pending jobs: %v", err)
			return stats
		}
		if remaining == 0 {
			return stats
		}

		select {
		case <-ctx.Done():
			return stats
		case <-time.After(p.pause):
		}
	}
}

// Run claims and runs one job under the shared concurrency bound.
// It reports false when another worker had already claimed the job.
func (p *Processor) Run(ctx context.Context, job domain.ImportJob) (JobOutcome, bool) {
	return p.runJob(ctx, job)
}

func (p *Processor) runJob(ctx context.Context, job domain.ImportJob) (JobOutcome, bool) {
	ctx = context.WithoutCancel(ctx)
	ctx = logger.SetJobID(ctx, job.ID)
	ctx = logger.SetURL(ctx, job.URL)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return JobOutcome{Err: err}, false
	}
	defer p.sem.Release(1)

	ok, err := p.jobs.Claim(ctx, job.ID)
	if err != nil {
		logger.CtxError(ctx, "Failed to claim job: %v", err)
		return JobOutcome{Err: err}, false
	}
	if !ok {
		return JobOutcome{}, false
	}

	start := time.Now()
	out := p.execute(ctx, job)
	entry := logger.With(logger.Fields{logger.FieldMethod: out.Method}).WithDuration(start)

	if out.Err == nil {
		if err := p.jobs.MarkCompleted(ctx, job.ID, out.Recipe.ID); err != nil {
			out = JobOutcome{Err: fmt.Errorf("record completion: %w", err)}
		}
	}
	if out.Err != nil {
		if err := p.jobs.MarkFailed(ctx, job.ID, out.Err.Error()); err != nil {
			logger.CtxError(ctx, "Failed to mark job failed: %v", err)
		}
		entry.WithStatus(string(domain.JobStatusFailed)).Warn(ctx, "Import failed: %v", out.Err)
		return out, true
	}

	entry.WithStatus(string(domain.JobStatusCompleted)).Info(logger.SetRecipeID(ctx, out.Recipe.ID), "Import completed")
	return out, true
}

// execute scrapes and stores the job's URL. A panic becomes the job's error.
func (p *Processor) execute(ctx context.Context, job domain.ImportJob) (out JobOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = JobOutcome{Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	existing, err := p.recipes.FindByURL(ctx, job.URL)
	if err != nil {
		return JobOutcome{Err: err}
	}
	if existing != nil {
		return JobOutcome{Recipe: existing, Method: "existing"}
	}

	res := p.scraper.Scrape(ctx, job.URL)
	if !res.Success || res.Data == nil {
		msg := res.Error
		if msg == "" {
			msg = "scrape failed"
		}
		return JobOutcome{Method: res.Method, Err: errors.New(msg)}
	}

	rec, err := p.recipes.SaveScraped(ctx, res.Data)
	if err != nil {
		return JobOutcome{Method: res.Method, Err: err}
	}
	return JobOutcome{Recipe: rec, Method: res.Method}
}
