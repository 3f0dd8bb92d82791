// Package repository defines the persistence contract for batch assessment
// jobs. The job document store is the single source of truth for
// externally visible job state.
package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

// ErrJobNotFound is returned when a job does not exist or belongs to a
// different account.
var ErrJobNotFound = errors.New("batch job not found")

// JobRepository persists BatchJob aggregates. Implementations must return
// snapshots from reads: callers may not observe later mutations through a
// previously returned job.
type JobRepository interface {
	// SaveJob persists a new job. It fails if the ID already exists.
	SaveJob(ctx context.Context, job *model.BatchJob) error

	// UpdateJob overwrites the stored job document. The write is
	// last-write-wins; the engine serializes progress updates per job
	// through a single writer.
	UpdateJob(ctx context.Context, job *model.BatchJob) error

	// FindJobByID returns the job with the given ID scoped to accountID,
	// or ErrJobNotFound if absent or owned by another account.
	FindJobByID(ctx context.Context, accountID, jobID string) (*model.BatchJob, error)

	// FindJobsByAccount returns up to limit jobs for the account, ordered
	// by creation time descending.
	FindJobsByAccount(ctx context.Context, accountID string, limit int) ([]*model.BatchJob, error)

	// Close releases resources held by the repository.
	Close() error
}
