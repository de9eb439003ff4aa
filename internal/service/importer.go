package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/repository"
	"github.com/timmy/recipebox/internal/source"
	"github.com/timmy/recipebox/internal/source/bookmarks"
)

const jobPollInterval = 500 * time.Millisecond

// ErrNoURLs is returned when a submission contains no importable URLs.
var ErrNoURLs = errors.New("no valid URLs found in bookmarks file")

// ImportService accepts single URLs and bookmark exports for import.
type ImportService struct {
	jobs      *repository.ImportJobRepository
	processor *Processor
	pollEvery time.Duration
}

// NewImportService creates a new import service.
func NewImportService(jobs *repository.ImportJobRepository, processor *Processor) *ImportService {
	return &ImportService{jobs: jobs, processor: processor, pollEvery: jobPollInterval}
}

// ImportResult is the outcome of a single-URL import.
type ImportResult struct {
	Recipe *domain.Recipe `json:"recipe"`
	Method string         `json:"method,omitempty"`
	JobID  string         `json:"jobId"`
}

// ImportFailure is a single-URL import that ran but did not produce a recipe.
type ImportFailure struct {
	JobID   string
	Message string
}

func (e *ImportFailure) Error() string { return e.Message }

// ImportURL imports one URL and waits for the outcome.
// The URL goes through the job store like a bulk import, so it shares the
// concurrency bound and shows up in the job history.
func (s *ImportService) ImportURL(ctx context.Context, rawURL string) (*ImportResult, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetJobID(ctx, job.ID)

	out, ran := s.processor.Run(ctx, *job)
	if ran {
		if out.Err != nil {
			return nil, &ImportFailure{JobID: job.ID, Message: out.Err.Error()}
		}
		return &ImportResult{Recipe: out.Recipe, Method: out.Method, JobID: job.ID}, nil
	}

	// A background drain picked the job up first; wait for it to finish.
	return s.await(ctx, job.ID)
}

func (s *ImportService) await(ctx context.Context, jobID string) (*ImportResult, error) {
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case domain.JobStatusFailed:
			return nil, &ImportFailure{JobID: jobID, Message: job.ErrorMessage}
		case domain.JobStatusCompleted:
			if job.RecipeID == nil {
				return nil, &ImportFailure{JobID: jobID, Message: "job completed without a recipe"}
			}
			rec, err := s.processor.recipes.Get(ctx, *job.RecipeID)
			if err != nil {
				return nil, err
			}
			return &ImportResult{Recipe: rec, JobID: jobID}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// BulkResult reports the jobs created by a bulk submission.
type BulkResult struct {
	Count int                `json:"count"`
	Jobs  []domain.ImportJob `json:"jobs"`
}

// ImportBookmarks parses a bookmarks export and queues one job per distinct URL.
// Processing starts in the background; the call does not wait for it.
func (s *ImportService) ImportBookmarks(ctx context.Context, doc string) (*BulkResult, error) {
	if !bookmarks.IsBookmarksDocument(doc) {
		return nil, invalid("invalid bookmarks file format")
	}
	links := bookmarks.Parse(doc)
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	res, err := s.enqueue(ctx, urls)
	if err != nil {
		return nil, err
	}
	s.processor.Trigger()
	return res, nil
}

// ImportSource queues every link a source yields without starting a drain.
// The caller runs the processor when it is ready.
func (s *ImportService) ImportSource(ctx context.Context, src source.Source, batchSize int) (*BulkResult, error) {
	ctx = logger.SetSource(ctx, src.GetSourceID())
	items, err := source.Drain(ctx, src, batchSize)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(items))
	for i, it := range items {
		urls[i] = it.URL
	}
	return s.enqueue(ctx, urls)
}

func (s *ImportService) enqueue(ctx context.Context, urls []string) (*BulkResult, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	jobs, err := s.jobs.CreateBatch(ctx, urls)
	if err != nil {
		return nil, err
	}
	logger.With(logger.Fields{logger.FieldCount: len(jobs)}).Info(ctx, "Import jobs created")
	return &BulkResult{Count: len(jobs), Jobs: jobs}, nil
}

// Jobs lists jobs newest first, optionally filtered by status.
func (s *ImportService) Jobs(ctx context.Context, status string, limit int) ([]domain.ImportJob, error) {
	st := domain.JobStatus(status)
	if st != "" && !st.Valid() {
		return nil, invalid("unknown job status %q", status)
	}
	_, limit = normalizePaging(1, limit)
	jobs, err := s.jobs.List(ctx, st, limit, 0)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []domain.ImportJob{}
	}
	return jobs, nil
}

// Stats returns job counts per status.
func (s *ImportService) Stats(ctx context.Context) (domain.JobStats, error) {
	return s.jobs.Stats(ctx)
}

// ProcessPending starts a background drain.
func (s *ImportService) ProcessPending() {
	s.processor.Trigger()
}

// Processing reports whether a background drain is running.
func (s *ImportService) Processing() bool {
	return s.processor.Running()
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("invalid URL: %s", raw)
	}
	return raw, nil
}
