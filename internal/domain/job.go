package domain

import "time"

// JobStatus represents the status of an import job.
// Values include JobStatusPending, JobStatusProcessing, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is one of the known job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// ImportJob tracks one attempt to import a single URL.
// The same URL may appear in several jobs; only the bulk processor moves a job
// between statuses, and completed/failed jobs are never touched again.
type ImportJob struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	URL          string     `gorm:"type:text;not null;index:idx_import_jobs_url" json:"url"`
	Status       JobStatus  `gorm:"type:text;not null;default:pending;index:idx_import_jobs_status_created,priority:1" json:"status"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	RecipeID     *string    `gorm:"type:text" json:"recipe_id,omitempty"`
	CreatedAt    time.Time  `gorm:"index:idx_import_jobs_status_created,priority:2" json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ImportJob.
func (ImportJob) TableName() string {
	return "import_jobs"
}

// JobStats holds per-status job counts for the import status view.
type JobStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// Total returns the number of jobs across all statuses.
func (s JobStats) Total() int64 {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
