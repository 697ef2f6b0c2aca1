package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/ledgerbook/internal/jobs"
)

// Store keeps job records in a map for the lifetime of the process. Every
// boundary crossing copies the record so callers cannot mutate stored state.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*jobs.ReportJob
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*jobs.ReportJob)}
}

// SaveJob inserts or replaces a job record.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ReportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *job
	s.byID[job.JobID] = &rec
	return nil
}

// GetJob returns the job with the given ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ReportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	rec := *stored
	return &rec, nil
}

// ListJobs returns matching jobs newest first. An offset past the end
// yields an empty slice, not an error.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ReportJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.ReportJob, 0, len(s.byID))
	for _, stored := range s.byID {
		if filter.Kind != "" && stored.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && stored.Status != filter.Status {
			continue
		}
		rec := *stored
		matched = append(matched, &rec)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].JobID < matched[j].JobID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*jobs.ReportJob{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// UpdateJobStatus rewrites a job's status and, when non-empty, its error.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	stored.Status = status
	if errorMsg != "" {
		stored.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
