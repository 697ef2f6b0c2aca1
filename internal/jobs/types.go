package jobs

import (
	"context"
	"time"
)

// JobType selects what a queued job produces.
type JobType string

const (
	// JobTypeGenerateReport produces a period spending report.
	JobTypeGenerateReport JobType = "generate_report"
	// JobTypeGenerateInsights produces the six-part insights bundle.
	JobTypeGenerateInsights JobType = "generate_insights"
)

// JobStatus tracks a job through its lifecycle: pending, running, then
// completed, failed, or retrying.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ReportJob asks for report or insights generation over the ledger. The
// finished text lands in Result so callers can poll for it; insights are
// stored as their JSON encoding.
type ReportJob struct {
	JobID       string     `json:"job_id"`
	Kind        JobType    `json:"kind"`
	Period      string     `json:"period"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	Result      string     `json:"result,omitempty"`
}

// Job is the queue's payload-agnostic view of a job. Handlers assert down
// to the concrete type they expect.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ReportJob) GetID() string        { return j.JobID }
func (j *ReportJob) GetType() JobType     { return j.Kind }
func (j *ReportJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs for asynchronous processing.
type Publisher interface {
	PublishReport(ctx context.Context, job *ReportJob) error
	Close() error
}

// Consumer drains the queue, invoking a handler per job.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the attempt failed
// and leaves the job eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore records job state so API clients can poll progress and fetch
// results after completion.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReportJob) error
	GetJob(ctx context.Context, jobID string) (*ReportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs results. Zero values mean no constraint.
type JobFilter struct {
	Kind   JobType
	Status JobStatus
	Limit  int
	Offset int
}
