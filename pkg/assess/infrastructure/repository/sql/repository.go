package sql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
)

const moduleName = "sql_repository"

// JobRepository is the GORM-backed job store.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a job repository over the given connection.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// SaveJob inserts the new job document.
func (r *JobRepository) SaveJob(ctx context.Context, job *model.BatchJob) error {
	if err := r.db.WithContext(ctx).Create(toJobEntity(job)).Error; err != nil {
		return exception.NewBatchError(moduleName, "failed to insert job "+job.ID, err, false, false)
	}
	return nil
}

// UpdateJob replaces the stored job document.
func (r *JobRepository) UpdateJob(ctx context.Context, job *model.BatchJob) error {
	if err := r.db.WithContext(ctx).Save(toJobEntity(job)).Error; err != nil {
		return exception.NewBatchError(moduleName, "failed to update job "+job.ID, err, false, false)
	}
	return nil
}

// FindJobByID returns the job document, or repository.ErrJobNotFound when
// the id is unknown or belongs to another account.
func (r *JobRepository) FindJobByID(ctx context.Context, accountID, jobID string) (*model.BatchJob, error) {
	var entity BatchJobEntity
	err := r.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", jobID, accountID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrJobNotFound
		}
		return nil, exception.NewBatchError(moduleName, "failed to load job "+jobID, err, false, false)
	}
	return toJobModel(&entity), nil
}

// FindJobsByAccount returns the account's jobs newest-first, up to limit.
func (r *JobRepository) FindJobsByAccount(ctx context.Context, accountID string, limit int) ([]*model.BatchJob, error) {
	var entities []BatchJobEntity
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to list jobs for account "+accountID, err, false, false)
	}

	jobs := make([]*model.BatchJob, 0, len(entities))
	for i := range entities {
		jobs = append(jobs, toJobModel(&entities[i]))
	}
	return jobs, nil
}

// Close is a no-op; the connection is owned by the database connector.
func (r *JobRepository) Close() error {
	return nil
}

var _ repository.JobRepository = (*JobRepository)(nil)
