package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/recipebox/internal/domain"
	"gorm.io/gorm"
)

// ImportJobRepository owns the import job lifecycle.
// Status writes are conditional on the current status, so a job only ever
// moves pending -> processing -> completed|failed and terminal rows are never rewritten.
type ImportJobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewImportJobRepository creates a new ImportJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImportJobRepository: repository instance bound to db.
func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db, now: time.Now}
}

// Create inserts a single pending job for url.
func (r *ImportJobRepository) Create(ctx context.Context, url string) (*domain.ImportJob, error) {
	jobs, err := r.CreateBatch(ctx, []string{url})
	if err != nil {
		return nil, err
	}
	return &jobs[0], nil
}

// CreateBatch inserts one pending job per URL in a single transaction.
// Creation times increase strictly in input order so FIFO selection follows submission order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - urls: URLs to enqueue, in submission order.
// Returns:
//   - []domain.ImportJob: created jobs.
//   - error: non-nil if the insert fails.
func (r *ImportJobRepository) CreateBatch(ctx context.Context, urls []string) ([]domain.ImportJob, error) {
	if len(urls) == 0 {
		return []domain.ImportJob{}, nil
	}
	base := r.now().UTC()
	jobs := make([]domain.ImportJob, len(urls))
	for i, u := range urls {
		created := base.Add(time.Duration(i) * time.Microsecond)
		jobs[i] = domain.ImportJob{
			ID:        uuid.NewString(),
			URL:       u,
			Status:    domain.JobStatusPending,
			CreatedAt: created,
			UpdatedAt: created,
		}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&jobs, 200).Error
	})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "create import jobs", Err: err}
	}
	return jobs, nil
}

// GetByID retrieves a job.
// Returns ErrNotFound if no job has the ID.
func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	var job domain.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// ListPending returns up to limit pending jobs, oldest first.
func (r *ImportJobRepository) ListPending(ctx context.Context, limit int) ([]domain.ImportJob, error) {
	var jobs []domain.ImportJob
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.JobStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// List returns jobs newest first, optionally filtered by status.
func (r *ImportJobRepository) List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ImportJob, error) {
	q := r.db.WithContext(ctx).Model(&domain.ImportJob{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []domain.ImportJob
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountByStatus returns the number of jobs in status.
func (r *ImportJobRepository) CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.ImportJob{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// Stats returns job counts grouped by status.
func (r *ImportJobRepository) Stats(ctx context.Context) (domain.JobStats, error) {
	var rows []struct {
		Status domain.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return domain.JobStats{}, err
	}

	var stats domain.JobStats
	for _, row := range rows {
		switch row.Status {
		case domain.JobStatusPending:
			stats.Pending = row.Count
		case domain.JobStatusProcessing:
			stats.Processing = row.Count
		case domain.JobStatusCompleted:
			stats.Completed = row.Count
		case domain.JobStatusFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}

// Claim moves a job from pending to processing.
// It reports false when the job was not pending, meaning another worker owns it.
func (r *ImportJobRepository) Claim(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusProcessing,
			"updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return false, &domain.PersistenceError{Op: "claim import job", Err: res.Error}
	}
	return res.RowsAffected == 1, nil
}

// MarkCompleted moves a processing job to completed against recipeID.
func (r *ImportJobRepository) MarkCompleted(ctx context.Context, id, recipeID string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":    domain.JobStatusCompleted,
		"recipe_id": recipeID,
	})
}

// MarkFailed moves a processing job to failed with message.
func (r *ImportJobRepository) MarkFailed(ctx context.Context, id, message string) error {
	if message == "" {
		message = "import failed"
	}
	return r.finish(ctx, id, map[string]interface{}{
		"status":        domain.JobStatusFailed,
		"error_message": message,
	})
}

func (r *ImportJobRepository) finish(ctx context.Context, id string, fields map[string]interface{}) error {
	now := r.now().UTC()
	fields["completed_at"] = now
	fields["updated_at"] = now
	res := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusProcessing).
		Updates(fields)
	if res.Error != nil {
		return &domain.PersistenceError{Op: "finish import job", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("import job %s is not processing", id)
	}
	return nil
}

// FailStale marks jobs stuck in processing as failed.
// A job is stuck only when the process that claimed it is gone, so this runs once at startup.
func (r *ImportJobRepository) FailStale(ctx context.Context, message string) (int64, error) {
	now := r.now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Where("status = ?", domain.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, &domain.PersistenceError{Op: "fail stale import jobs", Err: res.Error}
	}
	return res.RowsAffected, nil
}
