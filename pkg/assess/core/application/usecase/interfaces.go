// Package usecase implements the application services exposed to the
// transport layer: job submission, status polling, listing and
// cancellation.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

// ErrValidation marks a rejected job submission. Use errors.Is to detect
// it and ValidationError for the field detail.
var ErrValidation = errors.New("invalid job configuration")

// ValidationError reports which configuration field was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job configuration: %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// JobManager is the application service for batch assessment jobs.
type JobManager interface {
	// Create validates the configuration, persists a queued job, and
	// detaches its pipeline run. The returned snapshot reflects the job at
	// submission time.
	Create(ctx context.Context, accountID string, cfg model.BatchJobConfig, createdBy string) (*model.BatchJob, error)
	// GetStatus returns a snapshot of the job. Reading a terminal job is
	// idempotent. Returns repository.ErrJobNotFound for unknown ids and for
	// jobs of other accounts.
	GetStatus(ctx context.Context, accountID, jobID string) (*model.BatchJob, error)
	// List returns the account's jobs newest-first, up to limit
	// (DefaultListLimit when limit <= 0), with each job's result log
	// truncated to ListResultsCap entries.
	List(ctx context.Context, accountID string, limit int) ([]*model.BatchJob, error)
	// Cancel requests cooperative cancellation of a running job and returns
	// a snapshot. Cancelling a queued or terminal job changes nothing.
	Cancel(ctx context.Context, accountID, jobID string) (*model.BatchJob, error)
}
