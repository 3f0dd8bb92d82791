// Package inmemory provides map-backed implementations of the job
// repository and the framework and settings stores. They are used by
// tests and by deployments that do not need durable job documents.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
)

// JobRepository is the in-memory job store. All reads return deep copies
// so callers never observe or affect concurrent pipeline writes.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*model.BatchJob
}

// NewJobRepository creates an empty in-memory job repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]*model.BatchJob)}
}

// SaveJob stores a copy of the new job document.
func (r *JobRepository) SaveJob(ctx context.Context, job *model.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

// UpdateJob replaces the stored job document with a copy of job.
func (r *JobRepository) UpdateJob(ctx context.Context, job *model.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

// FindJobByID returns a copy of the job, or repository.ErrJobNotFound
// when the id is unknown or belongs to another account.
func (r *JobRepository) FindJobByID(ctx context.Context, accountID, jobID string) (*model.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok || job.AccountID != accountID {
		return nil, repository.ErrJobNotFound
	}
	return job.Clone(), nil
}

// FindJobsByAccount returns copies of the account's jobs newest-first,
// up to limit.
func (r *JobRepository) FindJobsByAccount(ctx context.Context, accountID string, limit int) ([]*model.BatchJob, error) {
	r.mu.RLock()
	var jobs []*model.BatchJob
	for _, job := range r.jobs {
		if job.AccountID == accountID {
			jobs = append(jobs, job.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Close releases nothing; it exists to satisfy the repository contract.
func (r *JobRepository) Close() error {
	return nil
}

var _ repository.JobRepository = (*JobRepository)(nil)

// FrameworkStore is an in-memory framework store seeded at construction.
type FrameworkStore struct {
	mu         sync.RWMutex
	frameworks map[string]*model.Framework
}

// NewFrameworkStore creates an empty in-memory framework store.
func NewFrameworkStore() *FrameworkStore {
	return &FrameworkStore{frameworks: make(map[string]*model.Framework)}
}

// Put stores or replaces a framework definition.
func (s *FrameworkStore) Put(framework *model.Framework) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameworks[framework.ID] = framework
}

// GetByID returns the framework, or port.ErrFrameworkNotFound.
func (s *FrameworkStore) GetByID(ctx context.Context, frameworkID string) (*model.Framework, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	framework, ok := s.frameworks[frameworkID]
	if !ok {
		return nil, port.ErrFrameworkNotFound
	}
	return framework, nil
}

var _ port.FrameworkStore = (*FrameworkStore)(nil)

// SettingsStore is an in-memory per-account settings store.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]string
}

// NewSettingsStore creates an empty in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]string)}
}

// Put stores or replaces a setting value.
func (s *SettingsStore) Put(accountID, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[accountID+"\x00"+name] = value
}

// GetSetting returns the setting value, or port.ErrSettingNotFound.
func (s *SettingsStore) GetSetting(ctx context.Context, accountID, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.settings[accountID+"\x00"+name]
	if !ok {
		return "", port.ErrSettingNotFound
	}
	return value, nil
}

var _ port.SettingsStore = (*SettingsStore)(nil)
